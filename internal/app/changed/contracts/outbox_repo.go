package contracts

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
)

// OutboxEvent represents an enriched change notification ready for persistence.
type OutboxEvent struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     string // JSON
	Status      string
	CreatedAt   time.Time
	RetryCount  int64
}

// OutboxRepository defines the interface for change notification persistence.
type OutboxRepository interface {
	// InsertMut creates a mutation for inserting an outbox event
	InsertMut(event *OutboxEvent) *spanner.Mutation

	// EnrichEvent converts a domain event to an outbox event with metadata
	EnrichEvent(event domain.DomainEvent, payload string) *OutboxEvent

	// ListPending returns up to limit pending events, oldest first
	ListPending(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkCompletedMut creates a mutation marking an event as delivered
	MarkCompletedMut(eventID string, at time.Time) *spanner.Mutation

	// MarkFailedMut creates a mutation recording a failed delivery attempt
	MarkFailedMut(event *OutboxEvent, cause error, maxRetries int64, at time.Time) *spanner.Mutation
}

// Committer applies commit plans atomically.
type Committer interface {
	Apply(ctx context.Context, plan *committer.CommitPlan) error
}

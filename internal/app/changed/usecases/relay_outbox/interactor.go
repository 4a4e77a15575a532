package relay_outbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
)

// Request controls one relay pass.
type Request struct {
	BatchSize  int   // Max notifications per pass (default: 100)
	MaxRetries int64 // Attempts before a notification is marked failed (default: 5)
}

// Result summarises one relay pass.
type Result struct {
	Published int
	Failed    int
}

// Interactor publishes pending change notifications to JetStream and marks
// them completed or failed.
type Interactor struct {
	outboxRepo contracts.OutboxRepository
	publisher  contracts.Publisher
	committer  contracts.Committer
	clock      clock.Clock
	prefix     string
	logger     *slog.Logger
}

// NewInteractor creates a new relay interactor.
func NewInteractor(
	outboxRepo contracts.OutboxRepository,
	publisher contracts.Publisher,
	committer contracts.Committer,
	clock clock.Clock,
	prefix string,
	logger *slog.Logger,
) *Interactor {
	if prefix == "" {
		prefix = reactions.DefaultSubjectPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interactor{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		committer:  committer,
		clock:      clock,
		prefix:     prefix,
		logger:     logger,
	}
}

// Execute relays one batch. Publish failures are recorded per notification;
// only reading the outbox or committing the status updates fails the pass.
func (i *Interactor) Execute(ctx context.Context, req *Request) (*Result, error) {
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = 5
	}

	events, err := i.outboxRepo.ListPending(ctx, req.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	result := &Result{}
	plan := committer.NewPlan()
	for _, event := range events {
		subject := reactions.Subject(i.prefix, strings.Split(event.AggregateID, ".")...)
		_, err := i.publisher.Publish(ctx, subject, []byte(event.Payload),
			jetstream.WithMsgID(event.EventID),
			jetstream.WithRetryAttempts(3),
		)
		now := i.clock.Now()
		if err != nil {
			i.logger.WarnContext(ctx, "relay publish failed",
				"event_id", event.EventID,
				"subject", subject,
				"retry_count", event.RetryCount,
				"error", err,
			)
			plan.Add(i.outboxRepo.MarkFailedMut(event, err, req.MaxRetries, now))
			result.Failed++
			continue
		}
		plan.Add(i.outboxRepo.MarkCompletedMut(event.EventID, now))
		result.Published++
	}

	if err := i.committer.Apply(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to commit relay results: %w", err)
	}
	return result, nil
}

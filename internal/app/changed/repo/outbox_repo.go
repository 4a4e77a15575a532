package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/models/m_change_outbox"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// OutboxRepo implements OutboxRepository for Spanner.
type OutboxRepo struct {
	client *spanner.Client
	model  *m_change_outbox.Model
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(client *spanner.Client) *OutboxRepo {
	return &OutboxRepo{
		client: client,
		model:  m_change_outbox.NewModel(),
	}
}

var _ contracts.OutboxRepository = (*OutboxRepo)(nil)

// InsertMut creates a mutation for inserting an outbox event.
func (r *OutboxRepo) InsertMut(event *contracts.OutboxEvent) *spanner.Mutation {
	var payload spanner.NullJSON
	if event.Payload != "" {
		// NullJSON marshals its Value, so a raw JSON string has to be wrapped.
		payload = spanner.NullJSON{Value: json.RawMessage(event.Payload), Valid: true}
	}

	return r.model.InsertMut(&m_change_outbox.Data{
		EventID:     event.EventID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     payload,
		Status:      event.Status,
		RetryCount:  event.RetryCount,
	})
}

// EnrichEvent converts a domain event to an outbox event with metadata.
func (r *OutboxRepo) EnrichEvent(event domain.DomainEvent, payload string) *contracts.OutboxEvent {
	return &contracts.OutboxEvent{
		EventID:     uuid.New().String(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Status:      m_change_outbox.StatusPending,
	}
}

// ListPending returns up to limit pending events, oldest first.
func (r *OutboxRepo) ListPending(ctx context.Context, limit int) ([]*contracts.OutboxEvent, error) {
	return r.List(ctx, m_change_outbox.StatusPending, "", limit, query.Asc)
}

// List returns events filtered by status and event type. Empty filters match
// everything.
func (r *OutboxRepo) List(ctx context.Context, status, eventType string, limit int, dir query.Direction) ([]*contracts.OutboxEvent, error) {
	b := query.From(m_change_outbox.TableName).
		Select(m_change_outbox.Columns...).
		OrderBy(m_change_outbox.CreatedAt, dir)
	if status != "" {
		b = b.Where(query.Eq(m_change_outbox.Status, status))
	}
	if eventType != "" {
		b = b.Where(query.Eq(m_change_outbox.EventType, eventType))
	}
	if limit > 0 {
		b = b.Limit(int64(limit))
	}

	iter := r.client.Single().Query(ctx, b.Build())
	defer iter.Stop()

	var events []*contracts.OutboxEvent
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate change notifications: %w", err)
		}

		var data m_change_outbox.Data
		if err := row.Columns(data.Pointers()...); err != nil {
			return nil, fmt.Errorf("failed to scan change notification: %w", err)
		}
		events = append(events, dataToEvent(&data))
	}
	return events, nil
}

// MarkCompletedMut creates a mutation marking an event as delivered.
func (r *OutboxRepo) MarkCompletedMut(eventID string, at time.Time) *spanner.Mutation {
	return r.model.UpdateMut(eventID, map[string]interface{}{
		m_change_outbox.Status:      m_change_outbox.StatusCompleted,
		m_change_outbox.ProcessedAt: spanner.NullTime{Time: at, Valid: true},
	})
}

// MarkFailedMut creates a mutation recording a failed delivery attempt. The
// event stays pending until it has failed maxRetries times.
func (r *OutboxRepo) MarkFailedMut(event *contracts.OutboxEvent, cause error, maxRetries int64, at time.Time) *spanner.Mutation {
	retries := event.RetryCount + 1
	updates := map[string]interface{}{
		m_change_outbox.RetryCount:   retries,
		m_change_outbox.ErrorMessage: spanner.NullString{StringVal: cause.Error(), Valid: true},
	}
	if retries >= maxRetries {
		updates[m_change_outbox.Status] = m_change_outbox.StatusFailed
		updates[m_change_outbox.ProcessedAt] = spanner.NullTime{Time: at, Valid: true}
	}
	return r.model.UpdateMut(event.EventID, updates)
}

func dataToEvent(data *m_change_outbox.Data) *contracts.OutboxEvent {
	event := &contracts.OutboxEvent{
		EventID:     data.EventID,
		EventType:   data.EventType,
		AggregateID: data.AggregateID,
		Status:      data.Status,
		CreatedAt:   data.CreatedAt,
		RetryCount:  data.RetryCount,
	}
	if data.Payload.Valid {
		event.Payload = data.Payload.String()
	}
	return event
}

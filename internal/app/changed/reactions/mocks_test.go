package reactions

import (
	"context"
	"time"

	"cloud.google.com/go/spanner"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/mock"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, data)
	if v := args.Get(0); v != nil {
		return v.(*jetstream.PubAck), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCommitter struct {
	mock.Mock
}

func (m *MockCommitter) Apply(ctx context.Context, plan *committer.CommitPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

// fakeOutbox records enriched events instead of building real mutations.
type fakeOutbox struct {
	events []*contracts.OutboxEvent
}

func (f *fakeOutbox) InsertMut(event *contracts.OutboxEvent) *spanner.Mutation {
	f.events = append(f.events, event)
	return spanner.Insert("change_outbox", []string{"event_id"}, []interface{}{event.EventID})
}

func (f *fakeOutbox) EnrichEvent(event domain.DomainEvent, payload string) *contracts.OutboxEvent {
	return &contracts.OutboxEvent{
		EventID:     "evt-" + event.AggregateID(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		Payload:     payload,
		Status:      "pending",
	}
}

func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]*contracts.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutbox) MarkCompletedMut(eventID string, at time.Time) *spanner.Mutation {
	return nil
}

func (f *fakeOutbox) MarkFailedMut(event *contracts.OutboxEvent, cause error, maxRetries int64, at time.Time) *spanner.Mutation {
	return nil
}

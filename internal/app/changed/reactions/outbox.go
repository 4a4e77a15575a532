package reactions

import (
	"context"
	"fmt"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
)

// OutboxReaction persists change notifications to the change outbox, from
// where the relay publishes them.
type OutboxReaction struct {
	repo      contracts.OutboxRepository
	committer contracts.Committer
	clock     clock.Clock
}

// NewOutboxReaction creates a new outbox reaction.
func NewOutboxReaction(repo contracts.OutboxRepository, committer contracts.Committer, clock clock.Clock) *OutboxReaction {
	return &OutboxReaction{
		repo:      repo,
		committer: committer,
		clock:     clock,
	}
}

// React stores one notification for a field's ChangeSet.
func (r *OutboxReaction) React(ctx context.Context, changes *domain.ChangeSet) error {
	op, _ := domain.OperationFromContext(ctx)
	event := &domain.FieldChangedEvent{
		OperationID: op.ID,
		Model:       op.Model,
		Changes:     changes,
		OccurredAt:  r.clock.Now(),
	}

	payload, err := EncodeFieldChanged(event)
	if err != nil {
		return err
	}
	return r.store(ctx, event, payload)
}

// ReactDefault stores one notification listing the affected ids.
func (r *OutboxReaction) ReactDefault(ctx context.Context, ids []string) error {
	op, _ := domain.OperationFromContext(ctx)
	event := &domain.RecordsChangedEvent{
		OperationID: op.ID,
		Model:       op.Model,
		IDs:         ids,
		OccurredAt:  r.clock.Now(),
	}

	payload, err := EncodeRecordsChanged(event)
	if err != nil {
		return err
	}
	return r.store(ctx, event, payload)
}

func (r *OutboxReaction) store(ctx context.Context, event domain.DomainEvent, payload []byte) error {
	plan := committer.NewPlan()
	plan.Add(r.repo.InsertMut(r.repo.EnrichEvent(event, string(payload))))

	if err := r.committer.Apply(ctx, plan); err != nil {
		return fmt.Errorf("failed to store change notification: %w", err)
	}
	return nil
}

package reactions

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
)

// DefaultSubjectPrefix is the subject prefix, and stream name, used when none
// is configured.
const DefaultSubjectPrefix = "CHANGES"

// NATSReaction publishes change notifications directly to JetStream.
// Subjects are "<prefix>.<model>.<field>" for field notifications and
// "<prefix>.<model>" for default-reaction notifications.
type NATSReaction struct {
	js     contracts.Publisher
	prefix string
	clock  clock.Clock
}

// NewNATSReaction creates a new NATS reaction.
func NewNATSReaction(js contracts.Publisher, prefix string, clock clock.Clock) *NATSReaction {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSReaction{js: js, prefix: prefix, clock: clock}
}

// React publishes one notification for a field's ChangeSet.
func (r *NATSReaction) React(ctx context.Context, changes *domain.ChangeSet) error {
	op, _ := domain.OperationFromContext(ctx)
	event := &domain.FieldChangedEvent{
		OperationID: op.ID,
		Model:       op.Model,
		Changes:     changes,
		OccurredAt:  r.clock.Now(),
	}

	data, err := EncodeFieldChanged(event)
	if err != nil {
		return err
	}
	return r.publish(ctx, Subject(r.prefix, op.Model, changes.Field()), msgID(op.ID, changes.Field()), data)
}

// ReactDefault publishes one notification listing the affected ids.
func (r *NATSReaction) ReactDefault(ctx context.Context, ids []string) error {
	op, _ := domain.OperationFromContext(ctx)
	event := &domain.RecordsChangedEvent{
		OperationID: op.ID,
		Model:       op.Model,
		IDs:         ids,
		OccurredAt:  r.clock.Now(),
	}

	data, err := EncodeRecordsChanged(event)
	if err != nil {
		return err
	}
	return r.publish(ctx, Subject(r.prefix, op.Model), msgID(op.ID, ""), data)
}

func (r *NATSReaction) publish(ctx context.Context, subject, msgID string, data []byte) error {
	opts := []jetstream.PublishOpt{jetstream.WithRetryAttempts(3)}
	if msgID != "" {
		opts = append(opts, jetstream.WithMsgID(msgID))
	}
	if _, err := r.js.Publish(ctx, subject, data, opts...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// msgID deduplicates redeliveries of the same notification. Without an
// operation there is nothing stable to key on.
func msgID(operationID, field string) string {
	if operationID == "" {
		return ""
	}
	if field == "" {
		return operationID
	}
	return operationID + "." + field
}

// Subject joins non-empty tokens with dots. Each token goes through
// domain.Token so it stays a single subject level.
func Subject(prefix string, tokens ...string) string {
	parts := []string{prefix}
	for _, t := range tokens {
		if t == "" {
			continue
		}
		parts = append(parts, domain.Token(t))
	}
	return strings.Join(parts, ".")
}

// EnsureStream creates or updates the stream capturing "<prefix>.>".
func EnsureStream(ctx context.Context, js jetstream.JetStream, prefix string) error {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     prefix,
		Subjects: []string{prefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", prefix, err)
	}
	return nil
}

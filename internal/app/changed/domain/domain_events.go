package domain

import (
	"strings"
	"time"
)

// DomainEvent is the base interface for change notifications persisted or
// published by reactions.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// FieldChangedEvent is emitted by notification reactions for one field's
// ChangeSet.
type FieldChangedEvent struct {
	OperationID string
	Model       string
	Changes     *ChangeSet
	OccurredAt  time.Time
}

func (e *FieldChangedEvent) EventType() string {
	return "field.changed"
}

// AggregateID is "<model>.<field>", each part passed through Token.
func (e *FieldChangedEvent) AggregateID() string {
	return Token(e.Model) + "." + Token(e.Changes.Field())
}

// RecordsChangedEvent is emitted by notification reactions for the default
// reaction, which only receives the affected ids.
type RecordsChangedEvent struct {
	OperationID string
	Model       string
	IDs         []string
	OccurredAt  time.Time
}

func (e *RecordsChangedEvent) EventType() string {
	return "records.changed"
}

func (e *RecordsChangedEvent) AggregateID() string {
	return Token(e.Model)
}

var tokenReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_")

// Token makes s a single dot-separated level of an aggregate id or message
// subject. Dots, spaces and subject wildcards become underscores.
func Token(s string) string {
	return tokenReplacer.Replace(s)
}

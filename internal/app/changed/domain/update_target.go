package domain

import "github.com/light-bringer/fieldwatch/internal/pkg/query"

// UpdateTarget describes what a host update is applied to.
// The interface is sealed to the three shapes below.
type UpdateTarget interface {
	// Proposed returns the new values the update wants to write.
	Proposed() FieldValues
	updateTarget()
}

// KnownInstance is an update where both states are already materialised,
// e.g. updating attributes of an instance the caller holds.
type KnownInstance struct {
	ID     string
	Before FieldValues
	After  FieldValues
}

func (t KnownInstance) Proposed() FieldValues { return t.After }
func (KnownInstance) updateTarget()           {}

// InstanceByID is an update where only the id and the new state are known.
// The prior state has to be fetched from the store.
type InstanceByID struct {
	ID    string
	After FieldValues
}

func (t InstanceByID) Proposed() FieldValues { return t.After }
func (InstanceByID) updateTarget()           {}

// Predicate is a bulk update matching zero or more records.
// A nil Where matches every record.
type Predicate struct {
	Where query.Condition
	After FieldValues
}

func (t Predicate) Proposed() FieldValues { return t.After }
func (Predicate) updateTarget()           {}

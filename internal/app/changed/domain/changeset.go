package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ChangeSet describes, for one field, which records changed and to which
// values. It keeps two indexes built together by Aggregate: the new value of
// every id and the ids that received every distinct value. A ChangeSet is
// read-only once built.
type ChangeSet struct {
	field      string
	ids        []string
	valuesByID map[string]interface{}

	// distinct values keyed by their canonical form, in first-seen order
	valueKeys  []string
	values     map[string]interface{}
	idsByValue map[string][]string
}

func newChangeSet(field string) *ChangeSet {
	return &ChangeSet{
		field:      field,
		ids:        make([]string, 0),
		valuesByID: make(map[string]interface{}),
		values:     make(map[string]interface{}),
		idsByValue: make(map[string][]string),
	}
}

// add records that id changed to value. Ids are assumed unique per field.
func (cs *ChangeSet) add(id string, value interface{}) {
	if _, exists := cs.valuesByID[id]; exists {
		return
	}
	key := valueKey(value)

	cs.ids = append(cs.ids, id)
	cs.valuesByID[id] = value
	if _, seen := cs.values[key]; !seen {
		cs.valueKeys = append(cs.valueKeys, key)
		cs.values[key] = value
	}
	cs.idsByValue[key] = append(cs.idsByValue[key], id)
}

// Field returns the field this ChangeSet describes.
func (cs *ChangeSet) Field() string { return cs.field }

// Len returns the number of affected records.
func (cs *ChangeSet) Len() int { return len(cs.ids) }

// IDs returns the affected record ids in sorted order.
func (cs *ChangeSet) IDs() []string {
	ids := make([]string, len(cs.ids))
	copy(ids, cs.ids)
	sort.Strings(ids)
	return ids
}

// Has returns true if the record id is part of the ChangeSet.
func (cs *ChangeSet) Has(id string) bool {
	_, ok := cs.valuesByID[id]
	return ok
}

// Value returns the new value of a record.
func (cs *ChangeSet) Value(id string) (interface{}, bool) {
	v, ok := cs.valuesByID[id]
	return v, ok
}

// ValuesByID returns a copy of the id -> new value index.
func (cs *ChangeSet) ValuesByID() map[string]interface{} {
	out := make(map[string]interface{}, len(cs.valuesByID))
	for id, v := range cs.valuesByID {
		out[id] = v
	}
	return out
}

// Values returns the distinct new values in the order they were first seen.
func (cs *ChangeSet) Values() []interface{} {
	out := make([]interface{}, 0, len(cs.valueKeys))
	for _, key := range cs.valueKeys {
		out = append(out, cs.values[key])
	}
	return out
}

// IDsFor returns the ids that changed to value, in insertion order.
func (cs *ChangeSet) IDsFor(value interface{}) []string {
	ids := cs.idsByValue[valueKey(value)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Validate checks that the two indexes agree: every id is listed under its
// value and every id listed under a value maps back to it.
func (cs *ChangeSet) Validate() error {
	listed := 0
	for key, ids := range cs.idsByValue {
		for _, id := range ids {
			v, ok := cs.valuesByID[id]
			if !ok {
				return fmt.Errorf("changeset %s: id %q indexed under a value but has none", cs.field, id)
			}
			if valueKey(v) != key {
				return fmt.Errorf("changeset %s: id %q indexed under the wrong value", cs.field, id)
			}
			listed++
		}
	}
	if listed != len(cs.valuesByID) || len(cs.ids) != len(cs.valuesByID) {
		return fmt.Errorf("changeset %s: %d ids but %d indexed by value", cs.field, len(cs.valuesByID), listed)
	}
	return nil
}

// valueKey returns the canonical key of a value. JSON sorts map keys and
// prints numbers by value, so equal values of different Go integer widths
// share a key while "22" and 22 do not.
func valueKey(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(b)
}

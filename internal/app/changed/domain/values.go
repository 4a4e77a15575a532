package domain

import "sort"

// FieldValues maps field names to values. It is used for proposed values,
// prior values and per-record diffs.
type FieldValues map[string]interface{}

// Has returns true if the field is present, even with a nil value.
func (v FieldValues) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Copy returns a shallow copy.
func (v FieldValues) Copy() FieldValues {
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Snapshot is the prior state of one record, restricted to watched fields.
type Snapshot struct {
	ID     string
	Values FieldValues
}

// PerRecordDiff maps record ids to the watched fields that changed for them.
// Records without changes are not present.
type PerRecordDiff map[string]FieldValues

// IDs returns the record ids in sorted order.
func (d PerRecordDiff) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty returns true if no record changed.
func (d PerRecordDiff) Empty() bool {
	return len(d) == 0
}

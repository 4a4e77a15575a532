package domain

import (
	"fmt"
	"strings"
)

// PresenceRule decides whether a proposed value counts as proposing a change.
type PresenceRule int

const (
	// PresenceTruthy treats empty proposals (nil, zero, "", false) as not
	// proposing a change. Setting a watched field to an empty value is
	// therefore never reported.
	PresenceTruthy PresenceRule = iota

	// PresenceDefined treats every key present in the proposed values as a
	// proposal, so resetting a field to its zero value is reported.
	PresenceDefined
)

// String returns the configuration name of the rule.
func (r PresenceRule) String() string {
	switch r {
	case PresenceDefined:
		return "defined"
	default:
		return "truthy"
	}
}

// ParsePresenceRule parses "truthy" or "defined". An empty string selects
// PresenceTruthy.
func ParsePresenceRule(s string) (PresenceRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "truthy":
		return PresenceTruthy, nil
	case "defined":
		return PresenceDefined, nil
	default:
		return PresenceTruthy, fmt.Errorf("unknown presence rule %q", s)
	}
}

// Proposes returns the proposed value for field and whether it counts as a
// proposal under the rule.
func (r PresenceRule) Proposes(after FieldValues, field string) (interface{}, bool) {
	v, ok := after[field]
	if !ok {
		return nil, false
	}
	if r == PresenceTruthy && IsEmpty(v) {
		return nil, false
	}
	return v, true
}

// Diff compares before and after for each watched field and returns the
// fields whose proposed value differs from the prior one, mapped to the new
// value. A field is changed when it is proposed and the prior value is empty
// or not deeply equal to it. The result is empty, never nil, when nothing
// changed.
func Diff(before, after FieldValues, fields []string, rule PresenceRule) FieldValues {
	changed := FieldValues{}
	for _, field := range fields {
		newVal, ok := rule.Proposes(after, field)
		if !ok {
			continue
		}

		oldVal := before[field]
		if IsEmpty(oldVal) {
			// Under PresenceDefined an empty prior value still equals the
			// same empty proposal.
			if rule == PresenceDefined && Equal(oldVal, newVal) {
				continue
			}
			changed[field] = newVal
			continue
		}

		if !Equal(oldVal, newVal) {
			changed[field] = newVal
		}
	}
	return changed
}

// DiffAll diffs every snapshot against the same proposed values and drops
// snapshots without changes.
func DiffAll(snapshots []Snapshot, after FieldValues, fields []string, rule PresenceRule) PerRecordDiff {
	out := PerRecordDiff{}
	for _, snap := range snapshots {
		changed := Diff(snap.Values, after, fields, rule)
		if len(changed) > 0 {
			out[snap.ID] = changed
		}
	}
	return out
}

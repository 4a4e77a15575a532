package domain

import "sort"

// Aggregate regroups per-record diffs into one ChangeSet per field.
// Fields that no record changed are absent from the result. Records and
// fields are visited in sorted order so the output does not depend on map
// iteration order.
func Aggregate(diffs PerRecordDiff) map[string]*ChangeSet {
	result := make(map[string]*ChangeSet)

	for _, id := range diffs.IDs() {
		changes := diffs[id]

		fields := make([]string, 0, len(changes))
		for field := range changes {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			cs, ok := result[field]
			if !ok {
				cs = newChangeSet(field)
				result[field] = cs
			}
			cs.add(id, changes[field])
		}
	}

	return result
}

// ChangedFields returns the fields present in changeSets in sorted order.
func ChangedFields(changeSets map[string]*ChangeSet) []string {
	fields := make([]string, 0, len(changeSets))
	for field := range changeSets {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

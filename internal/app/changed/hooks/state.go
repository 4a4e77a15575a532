package hooks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// ErrInvalidTransition is returned when an operation moves to a phase it
// cannot reach from its current one.
var ErrInvalidTransition = errors.New("invalid phase transition")

// Phase is the lifecycle position of one save operation.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseSkipped
	PhaseResolving
	PhaseDiffed
	PhaseAggregating
	PhaseDispatching
	PhaseDone
)

var phaseNames = map[Phase]string{
	PhaseInit:        "INIT",
	PhaseSkipped:     "SKIPPED",
	PhaseResolving:   "RESOLVING",
	PhaseDiffed:      "DIFFED",
	PhaseAggregating: "AGGREGATING",
	PhaseDispatching: "DISPATCHING",
	PhaseDone:        "DONE",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// transitions lists the phases reachable from each phase. DIFFED may end
// directly when nothing changed.
var transitions = map[Phase][]Phase{
	PhaseInit:        {PhaseSkipped, PhaseResolving},
	PhaseResolving:   {PhaseDiffed},
	PhaseDiffed:      {PhaseAggregating, PhaseDone},
	PhaseAggregating: {PhaseDispatching},
	PhaseDispatching: {PhaseDone},
}

// State is the change-detection state of one save operation. It lives in
// the operation's SaveContext and is never shared between operations.
type State struct {
	operationID string
	phase       Phase
	diffs       domain.PerRecordDiff
	dirty       map[string]bool
	report      *domain.DispatchReport
}

func newState(operationID string) *State {
	return &State{
		operationID: operationID,
		phase:       PhaseInit,
		dirty:       make(map[string]bool),
	}
}

// OperationID returns the id assigned to the operation.
func (s *State) OperationID() string { return s.operationID }

// Phase returns the current phase.
func (s *State) Phase() Phase { return s.phase }

// Report returns the dispatch report once the operation is done.
func (s *State) Report() *domain.DispatchReport { return s.report }

// Dirty returns true if field changed for at least one record.
func (s *State) Dirty(field string) bool { return s.dirty[field] }

// DirtyFields returns the changed fields in sorted order.
func (s *State) DirtyFields() []string {
	fields := make([]string, 0, len(s.dirty))
	for field := range s.dirty {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// HasChanges returns true if any watched field changed.
func (s *State) HasChanges() bool { return len(s.dirty) > 0 }

func (s *State) transition(to Phase) error {
	for _, allowed := range transitions[s.phase] {
		if allowed == to {
			s.phase = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.phase, to)
}

// setDiffs records the detected diff and marks its fields dirty.
func (s *State) setDiffs(diffs domain.PerRecordDiff) {
	s.diffs = diffs
	for _, changed := range diffs {
		for field := range changed {
			s.dirty[field] = true
		}
	}
}

// takeDiffs returns the diff and releases it from the state.
func (s *State) takeDiffs() domain.PerRecordDiff {
	diffs := s.diffs
	s.diffs = nil
	return diffs
}

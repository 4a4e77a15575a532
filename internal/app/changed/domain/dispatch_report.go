package domain

import (
	"errors"
	"sort"
	"time"
)

// OutcomeStatus is the result of considering one reaction.
type OutcomeStatus string

const (
	OutcomeInvoked       OutcomeStatus = "invoked"
	OutcomeSkipped       OutcomeStatus = "skipped"
	OutcomeFailed        OutcomeStatus = "failed"
	OutcomeMisconfigured OutcomeStatus = "misconfigured"
)

// Outcome records what happened to one field's reaction. For the default
// reaction Field is empty and Fields lists the sentinel fields it covered.
type Outcome struct {
	Field    string
	Fields   []string
	Reaction string
	Status   OutcomeStatus
	Records  int
	Err      error
	Duration time.Duration
}

// DispatchReport aggregates the outcomes of one dispatch. It is returned to
// the host for inspection and never turned into a save failure.
type DispatchReport struct {
	OperationID string
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []Outcome
}

// sortOutcomes orders outcomes by field so reports are stable.
func (r *DispatchReport) sortOutcomes() {
	sort.SliceStable(r.Outcomes, func(i, j int) bool {
		return r.Outcomes[i].Field < r.Outcomes[j].Field
	})
}

// Finish stamps the finish time and orders the outcomes.
func (r *DispatchReport) Finish(at time.Time) {
	r.FinishedAt = at
	r.sortOutcomes()
}

// Outcome returns the outcome for a field.
func (r *DispatchReport) Outcome(field string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Field == field {
			return o, true
		}
	}
	return Outcome{}, false
}

// Count returns the number of outcomes with the given status.
func (r *DispatchReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Errors returns the errors of failed and misconfigured outcomes.
func (r *DispatchReport) Errors() []error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errs
}

// Err joins all outcome errors, or returns nil.
func (r *DispatchReport) Err() error {
	return errors.Join(r.Errors()...)
}

// OK returns true if no reaction failed or was misconfigured.
func (r *DispatchReport) OK() bool {
	return len(r.Errors()) == 0
}

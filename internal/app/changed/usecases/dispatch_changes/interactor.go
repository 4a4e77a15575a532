package dispatch_changes

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
)

// DefaultConcurrency bounds the number of reactions running at once.
const DefaultConcurrency = 8

// Request contains the aggregated changes of one committed save.
type Request struct {
	OperationID string
	Changes     map[string]*domain.ChangeSet
	Skip        domain.SkipDirective
}

// Interactor invokes the reaction of every changed field.
type Interactor struct {
	spec     *domain.WatchSpec
	registry contracts.Registry
	clock    clock.Clock
	logger   *slog.Logger
	limit    int
}

// Option configures the interactor.
type Option func(*Interactor)

// WithConcurrency sets how many reactions may run at once. Values below one
// run reactions one at a time.
func WithConcurrency(n int) Option {
	return func(i *Interactor) {
		if n < 1 {
			n = 1
		}
		i.limit = n
	}
}

// WithLogger sets the logger used for dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interactor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewInteractor creates a new dispatch interactor.
func NewInteractor(spec *domain.WatchSpec, registry contracts.Registry, clk clock.Clock, opts ...Option) *Interactor {
	i := &Interactor{
		spec:     spec,
		registry: registry,
		clock:    clk,
		logger:   slog.Default(),
		limit:    DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// job is one reaction invocation.
type job struct {
	outcome domain.Outcome
	run     func(ctx context.Context) error
}

// Execute dispatches the changes and reports what happened. Reaction failures
// are recorded in the report and never returned: the save has already
// committed.
func (i *Interactor) Execute(ctx context.Context, req *Request) *domain.DispatchReport {
	report := &domain.DispatchReport{
		OperationID: req.OperationID,
		StartedAt:   i.clock.Now(),
	}

	jobs, skipped := i.plan(req)
	report.Outcomes = append(report.Outcomes, skipped...)

	ctx = domain.WithOperation(ctx, domain.Operation{ID: req.OperationID, Model: i.spec.Model()})

	outcomes := make([]domain.Outcome, len(jobs))
	var g errgroup.Group
	g.SetLimit(i.limit)
	for idx, j := range jobs {
		if j.run == nil {
			outcomes[idx] = j.outcome
			continue
		}
		g.Go(func() error {
			outcomes[idx] = i.invoke(ctx, j)
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = append(report.Outcomes, outcomes...)
	report.Finish(i.clock.Now())

	for _, o := range report.Outcomes {
		switch o.Status {
		case domain.OutcomeFailed:
			i.logger.ErrorContext(ctx, "reaction failed",
				"operation_id", req.OperationID,
				"model", i.spec.Model(),
				"field", o.Field,
				"reaction", o.Reaction,
				"error", o.Err,
			)
		case domain.OutcomeMisconfigured:
			i.logger.WarnContext(ctx, "reaction not dispatched",
				"operation_id", req.OperationID,
				"model", i.spec.Model(),
				"field", o.Field,
				"reaction", o.Reaction,
				"error", o.Err,
			)
		}
	}

	return report
}

// plan turns the change sets into jobs. Sentinel fields are folded into a
// single invocation of the default reaction.
func (i *Interactor) plan(req *Request) ([]job, []domain.Outcome) {
	var (
		jobs          []job
		skipped       []domain.Outcome
		defaultFields []string
		defaultIDs    = map[string]bool{}
	)

	for _, field := range domain.ChangedFields(req.Changes) {
		changes := req.Changes[field]
		watch, ok := i.spec.Lookup(field)
		if !ok {
			continue
		}
		reaction := i.spec.ReactionFor(watch)

		if req.Skip.Skips(field) {
			skipped = append(skipped, domain.Outcome{
				Field:    field,
				Reaction: reaction,
				Status:   domain.OutcomeSkipped,
				Records:  changes.Len(),
			})
			continue
		}

		if watch.Default {
			defaultFields = append(defaultFields, field)
			for _, id := range changes.IDs() {
				defaultIDs[id] = true
			}
			continue
		}

		jobs = append(jobs, i.fieldJob(field, reaction, changes))
	}

	if len(defaultFields) > 0 {
		ids := make([]string, 0, len(defaultIDs))
		for id := range defaultIDs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		jobs = append(jobs, i.defaultJob(defaultFields, ids))
	}

	return jobs, skipped
}

func (i *Interactor) fieldJob(field, reaction string, changes *domain.ChangeSet) job {
	j := job{outcome: domain.Outcome{Field: field, Reaction: reaction, Records: changes.Len()}}

	callable, ok := i.registry.Lookup(reaction)
	if !ok {
		return misconfigured(j, domain.ErrReactionNotFound)
	}

	var fn contracts.Reaction
	switch f := callable.(type) {
	case contracts.Reaction:
		fn = f
	case func(context.Context, *domain.ChangeSet) error:
		fn = f
	default:
		return misconfigured(j, domain.ErrReactionSignature)
	}

	j.run = func(ctx context.Context) error { return fn(ctx, changes) }
	return j
}

func (i *Interactor) defaultJob(fields, ids []string) job {
	reaction := i.spec.DefaultReaction()
	j := job{outcome: domain.Outcome{Fields: fields, Reaction: reaction, Records: len(ids)}}

	callable, ok := i.registry.Lookup(reaction)
	if !ok {
		return misconfigured(j, domain.ErrReactionNotFound)
	}

	var fn contracts.DefaultReaction
	switch f := callable.(type) {
	case contracts.DefaultReaction:
		fn = f
	case func(context.Context, []string) error:
		fn = f
	default:
		return misconfigured(j, domain.ErrReactionSignature)
	}

	j.run = func(ctx context.Context) error { return fn(ctx, ids) }
	return j
}

func misconfigured(j job, err error) job {
	j.outcome.Status = domain.OutcomeMisconfigured
	j.outcome.Err = &domain.ConfigurationError{Field: j.outcome.Field, Reaction: j.outcome.Reaction, Err: err}
	return j
}

// invoke runs one reaction, turning errors and panics into a failed outcome.
func (i *Interactor) invoke(ctx context.Context, j job) (outcome domain.Outcome) {
	outcome = j.outcome
	start := i.clock.Now()

	defer func() {
		if r := recover(); r != nil {
			outcome.Status = domain.OutcomeFailed
			outcome.Err = &domain.DispatchError{
				Field:    outcome.Field,
				Reaction: outcome.Reaction,
				Err:      fmt.Errorf("%w: %v", domain.ErrReactionPanicked, r),
			}
		}
		outcome.Duration = i.clock.Now().Sub(start)
	}()

	if err := j.run(ctx); err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Err = &domain.DispatchError{Field: outcome.Field, Reaction: outcome.Reaction, Err: err}
		return outcome
	}

	outcome.Status = domain.OutcomeInvoked
	return outcome
}

// Package hooks attaches change detection to a host model's save hooks.
//
// Before a save, the mixin resolves the prior state of the targeted records
// and diffs it against the proposed values. After the save commits, it
// aggregates the diff into one ChangeSet per field and dispatches reactions.
// Detection failures abort the save; reaction failures never do.
package hooks

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/usecases/detect_changes"
	"github.com/light-bringer/fieldwatch/internal/app/changed/usecases/dispatch_changes"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
)

const stateKey = "changed.state"

// ReportHandler receives the report of every dispatch.
type ReportHandler func(ctx context.Context, report *domain.DispatchReport)

// Mixin adds change detection to host models.
type Mixin struct {
	spec        *domain.WatchSpec
	registry    contracts.Registry
	clock       clock.Clock
	logger      *slog.Logger
	concurrency int
	handlers    []ReportHandler
	newID       func() string
}

// Option configures a Mixin.
type Option func(*Mixin)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mixin) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the clock used to stamp reports.
func WithClock(clk clock.Clock) Option {
	return func(m *Mixin) { m.clock = clk }
}

// WithConcurrency bounds the number of reactions running at once.
func WithConcurrency(n int) Option {
	return func(m *Mixin) { m.concurrency = n }
}

// WithReportHandler adds a handler called with every dispatch report.
func WithReportHandler(h ReportHandler) Option {
	return func(m *Mixin) { m.handlers = append(m.handlers, h) }
}

// New creates a mixin for spec. Reactions are resolved from registry when a
// save dispatches, not when the mixin is created.
func New(spec *domain.WatchSpec, registry contracts.Registry, opts ...Option) *Mixin {
	m := &Mixin{
		spec:        spec,
		registry:    registry,
		clock:       clock.NewRealClock(),
		logger:      slog.Default(),
		concurrency: dispatch_changes.DefaultConcurrency,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Attach validates the watch spec against the host and registers the save
// hooks. Configuration problems are logged and returned; they never prevent
// the host from loading.
func (m *Mixin) Attach(host contracts.HookRegistrar) []*domain.ConfigurationError {
	logger := m.logger.With("model", host.ModelName())

	problems := m.spec.Validate(host.Schema(), m.registry)
	for _, p := range problems {
		logger.Warn("change detection misconfigured", "field", p.Field, "reaction", p.Reaction, "error", p.Err)
	}

	detect := detect_changes.NewInteractor(m.spec, host.Finder(), logger)
	dispatch := dispatch_changes.NewInteractor(m.spec, m.registry, m.clock,
		dispatch_changes.WithConcurrency(m.concurrency),
		dispatch_changes.WithLogger(logger),
	)

	host.BeforeSave(func(ctx context.Context, save *contracts.SaveContext) error {
		return m.beforeSave(ctx, save, detect)
	})
	host.AfterSave(func(ctx context.Context, save *contracts.SaveContext) error {
		return m.afterSave(ctx, save, dispatch)
	})

	return problems
}

func (m *Mixin) beforeSave(ctx context.Context, save *contracts.SaveContext, detect *detect_changes.Interactor) error {
	// Creation has no prior state to compare against.
	if save.IsNew {
		return nil
	}

	state := newState(m.newID())
	save.Set(stateKey, state)

	skip := save.Options.Skip
	if skip.All() {
		return state.transition(PhaseSkipped)
	}

	if err := state.transition(PhaseResolving); err != nil {
		return err
	}

	diffs, err := detect.Execute(ctx, &detect_changes.Request{Target: save.Target, Skip: skip})
	if err != nil {
		save.Delete(stateKey)
		return err
	}

	state.setDiffs(diffs)
	return state.transition(PhaseDiffed)
}

func (m *Mixin) afterSave(ctx context.Context, save *contracts.SaveContext, dispatch *dispatch_changes.Interactor) error {
	state, ok := StateFrom(save)
	if !ok || state.Phase() != PhaseDiffed {
		return nil
	}

	diffs := state.takeDiffs()
	if diffs.Empty() {
		return state.transition(PhaseDone)
	}

	if err := state.transition(PhaseAggregating); err != nil {
		return err
	}
	changes := domain.Aggregate(diffs)

	if err := state.transition(PhaseDispatching); err != nil {
		return err
	}
	report := dispatch.Execute(ctx, &dispatch_changes.Request{
		OperationID: state.OperationID(),
		Changes:     changes,
		Skip:        save.Options.Skip,
	})
	state.report = report

	m.logger.DebugContext(ctx, "changes dispatched",
		"model", save.Model,
		"operation_id", report.OperationID,
		"fields", domain.ChangedFields(changes),
		"failed", report.Count(domain.OutcomeFailed),
	)
	for _, h := range m.handlers {
		h(ctx, report)
	}

	return state.transition(PhaseDone)
}

// StateFrom returns the change-detection state of a save, if any.
func StateFrom(save *contracts.SaveContext) (*State, bool) {
	v, ok := save.Get(stateKey)
	if !ok {
		return nil, false
	}
	state, ok := v.(*State)
	return state, ok
}

// ReportFrom returns the dispatch report of a completed save, if any.
func ReportFrom(save *contracts.SaveContext) (*domain.DispatchReport, bool) {
	state, ok := StateFrom(save)
	if !ok || state.report == nil {
		return nil, false
	}
	return state.report, true
}

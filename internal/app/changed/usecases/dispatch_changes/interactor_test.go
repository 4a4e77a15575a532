package dispatch_changes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/pkg/clock"
)

// recorder captures reaction invocations.
type recorder struct {
	mu       sync.Mutex
	calls    map[string][]*domain.ChangeSet
	defaults [][]string
	ops      []domain.Operation
}

func newRecorder() *recorder {
	return &recorder{calls: map[string][]*domain.ChangeSet{}}
}

func (r *recorder) reaction(name string) contracts.Reaction {
	return func(ctx context.Context, changes *domain.ChangeSet) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls[name] = append(r.calls[name], changes)
		if op, ok := domain.OperationFromContext(ctx); ok {
			r.ops = append(r.ops, op)
		}
		return nil
	}
}

func (r *recorder) defaultReaction(ctx context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = append(r.defaults, ids)
	return nil
}

func setup(t *testing.T, watches []domain.Watch) (*Interactor, *reactions.Registry, *recorder) {
	t.Helper()
	rec := newRecorder()
	registry := reactions.NewRegistry()
	for _, name := range []string{"changeName", "changeAge", "changeStatus"} {
		require.NoError(t, registry.Register(name, rec.reaction(name)))
	}
	require.NoError(t, registry.RegisterDefault(domain.DefaultReactionName, rec.defaultReaction))

	spec := domain.NewWatchSpec("Person", watches)
	clk := clock.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewInteractor(spec, registry, clk), registry, rec
}

var namedWatches = []domain.Watch{
	{Field: "name", Reaction: "changeName"},
	{Field: "age", Reaction: "changeAge"},
	{Field: "status", Reaction: "changeStatus"},
}

func TestExecute_OneInvocationPerChangedField(t *testing.T) {
	interactor, _, rec := setup(t, namedWatches)

	changes := domain.Aggregate(domain.PerRecordDiff{
		"joe":   {"status": "pending", "age": 22},
		"bilbo": {"status": "pending"},
	})

	report := interactor.Execute(context.Background(), &Request{OperationID: "op-1", Changes: changes})

	require.True(t, report.OK())
	assert.Equal(t, 2, report.Count(domain.OutcomeInvoked))
	assert.Len(t, rec.calls["changeStatus"], 1)
	assert.Len(t, rec.calls["changeAge"], 1)
	assert.Empty(t, rec.calls["changeName"], "unchanged fields are not dispatched")

	status := rec.calls["changeStatus"][0]
	assert.Equal(t, []string{"bilbo", "joe"}, status.IDs())
	assert.Equal(t, []string{"bilbo", "joe"}, status.IDsFor("pending"))

	outcome, ok := report.Outcome("status")
	require.True(t, ok)
	assert.Equal(t, "changeStatus", outcome.Reaction)
	assert.Equal(t, 2, outcome.Records)

	for _, op := range rec.ops {
		assert.Equal(t, domain.Operation{ID: "op-1", Model: "Person"}, op)
	}
}

func TestExecute_NothingChanged(t *testing.T) {
	interactor, _, rec := setup(t, namedWatches)

	report := interactor.Execute(context.Background(), &Request{Changes: domain.Aggregate(domain.PerRecordDiff{})})

	assert.Empty(t, report.Outcomes)
	assert.Empty(t, rec.calls)
}

func TestExecute_Skip(t *testing.T) {
	interactor, _, rec := setup(t, namedWatches)
	changes := domain.Aggregate(domain.PerRecordDiff{"joe": {"status": "pending", "age": 22}})

	report := interactor.Execute(context.Background(), &Request{Changes: changes, Skip: domain.SkipField("status")})

	assert.Empty(t, rec.calls["changeStatus"])
	assert.Len(t, rec.calls["changeAge"], 1)

	outcome, ok := report.Outcome("status")
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeSkipped, outcome.Status)
}

func TestExecute_FailuresAreIsolated(t *testing.T) {
	interactor, registry, rec := setup(t, namedWatches)
	registry.Unregister("changeAge")
	require.NoError(t, registry.Register("changeAge", func(ctx context.Context, changes *domain.ChangeSet) error {
		return errors.New("mailer down")
	}))
	registry.Unregister("changeName")
	require.NoError(t, registry.Register("changeName", func(ctx context.Context, changes *domain.ChangeSet) error {
		panic("boom")
	}))

	changes := domain.Aggregate(domain.PerRecordDiff{"joe": {"status": "pending", "age": 22, "name": "Joseph"}})
	report := interactor.Execute(context.Background(), &Request{Changes: changes})

	assert.Len(t, rec.calls["changeStatus"], 1, "other reactions still run")
	assert.Equal(t, 2, report.Count(domain.OutcomeFailed))
	assert.False(t, report.OK())

	age, _ := report.Outcome("age")
	var dispatchErr *domain.DispatchError
	require.ErrorAs(t, age.Err, &dispatchErr)
	assert.Equal(t, "changeAge", dispatchErr.Reaction)

	name, _ := report.Outcome("name")
	assert.ErrorIs(t, name.Err, domain.ErrReactionPanicked)
}

func TestExecute_Misconfigured(t *testing.T) {
	interactor, registry, rec := setup(t, []domain.Watch{
		{Field: "name", Reaction: "missing"},
		{Field: "age", Reaction: "notAFunction"},
		{Field: "status", Reaction: "changeStatus"},
	})
	require.NoError(t, registry.RegisterValue("notAFunction", 42))

	changes := domain.Aggregate(domain.PerRecordDiff{"joe": {"status": "pending", "age": 22, "name": "Joseph"}})
	report := interactor.Execute(context.Background(), &Request{Changes: changes})

	assert.Len(t, rec.calls["changeStatus"], 1)
	assert.Equal(t, 2, report.Count(domain.OutcomeMisconfigured))

	name, _ := report.Outcome("name")
	assert.ErrorIs(t, name.Err, domain.ErrReactionNotFound)
	age, _ := report.Outcome("age")
	assert.ErrorIs(t, age.Err, domain.ErrReactionSignature)

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, age.Err, &cfgErr)
	assert.Equal(t, "age", cfgErr.Field)
}

func TestExecute_DefaultReaction(t *testing.T) {
	interactor, _, rec := setup(t, []domain.Watch{
		{Field: "name", Default: true},
		{Field: "age", Default: true},
		{Field: "status", Reaction: "changeStatus"},
	})

	changes := domain.Aggregate(domain.PerRecordDiff{
		"joe":   {"name": "Joseph", "status": "pending"},
		"bilbo": {"age": 111},
	})
	report := interactor.Execute(context.Background(), &Request{Changes: changes})

	require.Len(t, rec.defaults, 1, "sentinel fields share one invocation")
	assert.Equal(t, []string{"bilbo", "joe"}, rec.defaults[0])
	assert.Len(t, rec.calls["changeStatus"], 1)

	outcome, ok := report.Outcome("")
	require.True(t, ok)
	assert.Equal(t, []string{"age", "name"}, outcome.Fields)
	assert.Equal(t, domain.DefaultReactionName, outcome.Reaction)
	assert.Equal(t, domain.OutcomeInvoked, outcome.Status)
}

func TestExecute_SharedReactionNameIsNotDeduplicated(t *testing.T) {
	interactor, _, rec := setup(t, []domain.Watch{
		{Field: "name", Reaction: "changeStatus"},
		{Field: "status", Reaction: "changeStatus"},
	})

	changes := domain.Aggregate(domain.PerRecordDiff{"joe": {"name": "Joseph", "status": "pending"}})
	interactor.Execute(context.Background(), &Request{Changes: changes})

	assert.Len(t, rec.calls["changeStatus"], 2)
}

func TestExecute_SequentialLimit(t *testing.T) {
	rec := newRecorder()
	registry := reactions.NewRegistry()
	var running, peak int
	var mu sync.Mutex
	track := func(ctx context.Context, changes *domain.ChangeSet) error {
		mu.Lock()
		running++
		if running > peak {
			peak = running
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
		return rec.reaction(changes.Field())(ctx, changes)
	}
	for _, name := range []string{"changeName", "changeAge", "changeStatus"} {
		require.NoError(t, registry.Register(name, track))
	}

	interactor := NewInteractor(domain.NewWatchSpec("Person", namedWatches), registry, clock.NewRealClock(), WithConcurrency(0))
	changes := domain.Aggregate(domain.PerRecordDiff{"joe": {"name": "Joseph", "status": "pending", "age": 22}})
	report := interactor.Execute(context.Background(), &Request{Changes: changes})

	assert.Equal(t, 3, report.Count(domain.OutcomeInvoked))
	assert.Equal(t, 1, peak)
}

package hooks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/reactions"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// memHost is a minimal host keeping records in memory.
type memHost struct {
	mu      sync.Mutex
	records map[string]domain.FieldValues
	before  []contracts.BeforeSaveHook
	after   []contracts.AfterSaveHook
}

func newMemHost() *memHost {
	return &memHost{records: map[string]domain.FieldValues{
		"joe":   {"name": "Joe", "age": int64(21), "status": "active"},
		"bilbo": {"name": "Bilbo", "age": int64(111), "status": "active"},
	}}
}

func (h *memHost) ModelName() string                        { return "Person" }
func (h *memHost) Schema() []string                         { return []string{"name", "age", "status"} }
func (h *memHost) Finder() contracts.RecordFinder           { return h }
func (h *memHost) BeforeSave(hook contracts.BeforeSaveHook) { h.before = append(h.before, hook) }
func (h *memHost) AfterSave(hook contracts.AfterSaveHook)   { h.after = append(h.after, hook) }

func (h *memHost) FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return project(rec, fields), nil
}

func (h *memHost) Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.Snapshot
	for id, rec := range h.records {
		out = append(out, domain.Snapshot{ID: id, Values: project(rec, fields)})
	}
	return out, nil
}

func project(rec domain.FieldValues, fields []string) domain.FieldValues {
	out := domain.FieldValues{}
	for _, f := range fields {
		out[f] = rec[f]
	}
	return out
}

// save runs the hooks around an in-memory write.
func (h *memHost) save(ctx context.Context, save *contracts.SaveContext, write bool) error {
	for _, hook := range h.before {
		if err := hook(ctx, save); err != nil {
			return err
		}
	}
	if !write {
		return nil
	}
	for _, hook := range h.after {
		if err := hook(ctx, save); err != nil {
			return err
		}
	}
	return nil
}

type calls struct {
	mu      sync.Mutex
	byField map[string][]*domain.ChangeSet
}

func setup(t *testing.T, opts ...Option) (*memHost, *calls) {
	t.Helper()
	c := &calls{byField: map[string][]*domain.ChangeSet{}}
	registry := reactions.NewRegistry()
	for _, name := range []string{"changeAge", "changeStatus"} {
		require.NoError(t, registry.Register(name, func(ctx context.Context, changes *domain.ChangeSet) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.byField[changes.Field()] = append(c.byField[changes.Field()], changes)
			return nil
		}))
	}

	spec := domain.NewWatchSpec("Person", []domain.Watch{
		{Field: "age", Reaction: "changeAge"},
		{Field: "status", Reaction: "changeStatus"},
	})
	host := newMemHost()
	problems := New(spec, registry, opts...).Attach(host)
	require.Empty(t, problems)
	return host, c
}

func TestMixin_UpdateDispatches(t *testing.T) {
	host, c := setup(t)
	ctx := context.Background()

	save := contracts.NewSaveContext("Person", domain.InstanceByID{
		ID:    "joe",
		After: domain.FieldValues{"status": "pending", "age": int64(21)},
	}, false, contracts.SaveOptions{})
	require.NoError(t, host.save(ctx, save, true))

	state, ok := StateFrom(save)
	require.True(t, ok)
	assert.Equal(t, PhaseDone, state.Phase())
	assert.NotEmpty(t, state.OperationID())
	assert.Equal(t, []string{"status"}, state.DirtyFields())
	assert.Nil(t, state.takeDiffs(), "diff is released after dispatch")

	report, ok := ReportFrom(save)
	require.True(t, ok)
	assert.Equal(t, state.OperationID(), report.OperationID)
	assert.Equal(t, 1, report.Count(domain.OutcomeInvoked))

	require.Len(t, c.byField["status"], 1)
	assert.Equal(t, []string{"joe"}, c.byField["status"][0].IDs())
	assert.Empty(t, c.byField["age"])
}

func TestMixin_BulkUpdate(t *testing.T) {
	host, c := setup(t)

	save := contracts.NewSaveContext("Person", domain.Predicate{
		After: domain.FieldValues{"status": "archived"},
	}, false, contracts.SaveOptions{})
	require.NoError(t, host.save(context.Background(), save, true))

	require.Len(t, c.byField["status"], 1)
	assert.Equal(t, []string{"bilbo", "joe"}, c.byField["status"][0].IDsFor("archived"))
}

func TestMixin_CreateIsIgnored(t *testing.T) {
	host, c := setup(t)

	save := contracts.NewSaveContext("Person", domain.KnownInstance{
		ID:    "tina",
		After: domain.FieldValues{"status": "active"},
	}, true, contracts.SaveOptions{})
	require.NoError(t, host.save(context.Background(), save, true))

	_, ok := StateFrom(save)
	assert.False(t, ok)
	assert.Empty(t, c.byField)
}

func TestMixin_SkipAll(t *testing.T) {
	host, c := setup(t)

	save := contracts.NewSaveContext("Person", domain.InstanceByID{
		ID:    "joe",
		After: domain.FieldValues{"status": "pending"},
	}, false, contracts.SaveOptions{Skip: domain.SkipAll()})
	require.NoError(t, host.save(context.Background(), save, true))

	state, ok := StateFrom(save)
	require.True(t, ok)
	assert.Equal(t, PhaseSkipped, state.Phase())
	assert.Empty(t, c.byField)
}

func TestMixin_ResolutionFailureAbortsSave(t *testing.T) {
	host, c := setup(t)

	save := contracts.NewSaveContext("Person", domain.InstanceByID{
		ID:    "ghost",
		After: domain.FieldValues{"status": "pending"},
	}, false, contracts.SaveOptions{})
	err := host.save(context.Background(), save, true)

	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	_, ok := StateFrom(save)
	assert.False(t, ok)
	assert.Empty(t, c.byField)
}

func TestMixin_NoDispatchWithoutCommit(t *testing.T) {
	host, c := setup(t)

	save := contracts.NewSaveContext("Person", domain.InstanceByID{
		ID:    "joe",
		After: domain.FieldValues{"status": "pending"},
	}, false, contracts.SaveOptions{})
	require.NoError(t, host.save(context.Background(), save, false))

	state, ok := StateFrom(save)
	require.True(t, ok)
	assert.Equal(t, PhaseDiffed, state.Phase())
	assert.Empty(t, c.byField)
}

func TestMixin_ReportHandler(t *testing.T) {
	var reports []*domain.DispatchReport
	host, _ := setup(t, WithReportHandler(func(ctx context.Context, r *domain.DispatchReport) {
		reports = append(reports, r)
	}))

	save := contracts.NewSaveContext("Person", domain.InstanceByID{
		ID:    "bilbo",
		After: domain.FieldValues{"age": 112},
	}, false, contracts.SaveOptions{})
	require.NoError(t, host.save(context.Background(), save, true))

	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK())
}

func TestMixin_ConcurrentSavesKeepSeparateState(t *testing.T) {
	host, c := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	saves := make([]*contracts.SaveContext, 2)
	for i, id := range []string{"joe", "bilbo"} {
		saves[i] = contracts.NewSaveContext("Person", domain.InstanceByID{
			ID:    id,
			After: domain.FieldValues{"status": "pending"},
		}, false, contracts.SaveOptions{})
		wg.Add(1)
		go func(save *contracts.SaveContext) {
			defer wg.Done()
			assert.NoError(t, host.save(ctx, save, true))
		}(saves[i])
	}
	wg.Wait()

	first, _ := StateFrom(saves[0])
	second, _ := StateFrom(saves[1])
	assert.NotEqual(t, first.OperationID(), second.OperationID())

	c.mu.Lock()
	defer c.mu.Unlock()
	require.Len(t, c.byField["status"], 2)
	for _, cs := range c.byField["status"] {
		assert.Equal(t, 1, cs.Len())
	}
}

func TestMixin_AttachReportsProblems(t *testing.T) {
	spec := domain.NewWatchSpec("Person", []domain.Watch{
		{Field: "shoeSize", Reaction: "changeShoeSize"},
	})

	problems := New(spec, reactions.NewRegistry()).Attach(newMemHost())

	require.Len(t, problems, 2)
	assert.ErrorIs(t, problems[0], domain.ErrUnknownField)
	assert.ErrorIs(t, problems[1], domain.ErrReactionNotFound)
}

func TestState_Transitions(t *testing.T) {
	s := newState("op")
	assert.Equal(t, PhaseInit, s.Phase())

	require.NoError(t, s.transition(PhaseResolving))
	err := s.transition(PhaseDispatching)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, PhaseResolving, s.Phase())

	require.NoError(t, s.transition(PhaseDiffed))
	require.NoError(t, s.transition(PhaseDone))
	assert.ErrorIs(t, s.transition(PhaseInit), ErrInvalidTransition)

	assert.Equal(t, "DONE", PhaseDone.String())
	assert.Equal(t, "Phase(42)", Phase(42).String())
}

package contracts

import (
	"context"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// SaveOptions are the per-call options a host passes with a save.
type SaveOptions struct {
	// Skip suppresses change detection for some or all watched fields.
	Skip domain.SkipDirective
}

// SaveContext describes one save operation. The host creates it, hands the
// same value to the before and after hooks, and drops it when the operation
// ends. Hooks keep operation-scoped state in it.
type SaveContext struct {
	Model   string
	IsNew   bool
	Target  domain.UpdateTarget
	Options SaveOptions

	state map[string]interface{}
}

// NewSaveContext creates the context of one save.
func NewSaveContext(model string, target domain.UpdateTarget, isNew bool, opts SaveOptions) *SaveContext {
	return &SaveContext{
		Model:   model,
		IsNew:   isNew,
		Target:  target,
		Options: opts,
		state:   make(map[string]interface{}),
	}
}

// Get returns operation state stored under key.
func (s *SaveContext) Get(key string) (interface{}, bool) {
	v, ok := s.state[key]
	return v, ok
}

// Set stores operation state under key.
func (s *SaveContext) Set(key string, v interface{}) {
	if s.state == nil {
		s.state = make(map[string]interface{})
	}
	s.state[key] = v
}

// Delete removes operation state stored under key.
func (s *SaveContext) Delete(key string) {
	delete(s.state, key)
}

// BeforeSaveHook runs before the host writes. A returned error aborts the
// save.
type BeforeSaveHook func(ctx context.Context, save *SaveContext) error

// AfterSaveHook runs after the host's write has committed.
type AfterSaveHook func(ctx context.Context, save *SaveContext) error

// HookRegistrar is the host model a mixin attaches to.
type HookRegistrar interface {
	// ModelName returns the model's name.
	ModelName() string

	// Schema returns the model's field names.
	Schema() []string

	// Finder returns the query facade over the model's store.
	Finder() RecordFinder

	BeforeSave(hook BeforeSaveHook)
	AfterSave(hook AfterSaveHook)
}

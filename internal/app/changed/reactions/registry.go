package reactions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

var (
	ErrEmptyName     = errors.New("reaction name is empty")
	ErrNilReaction   = errors.New("reaction is nil")
	ErrDuplicateName = errors.New("reaction is already registered")
)

// Registry maps reaction identifiers to callables. It is safe for
// concurrent use; lookups happen at dispatch time, so reactions registered
// after a model is defined are still found.
type Registry struct {
	mu        sync.RWMutex
	reactions map[string]interface{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{reactions: make(map[string]interface{})}
}

// Register adds a per-field reaction.
func (r *Registry) Register(name string, fn contracts.Reaction) error {
	if fn == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilReaction)
	}
	return r.register(name, fn)
}

// RegisterDefault adds a reaction receiving the ids affected by a save.
func (r *Registry) RegisterDefault(name string, fn contracts.DefaultReaction) error {
	if fn == nil {
		return fmt.Errorf("register %q: %w", name, ErrNilReaction)
	}
	return r.register(name, fn)
}

// RegisterValue stores an arbitrary value. Values of the wrong shape are
// reported as misconfigured when a dispatch resolves them.
func (r *Registry) RegisterValue(name string, v interface{}) error {
	return r.register(name, v)
}

func (r *Registry) register(name string, v interface{}) error {
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reactions[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateName)
	}
	r.reactions[name] = v
	return nil
}

// Unregister removes a reaction.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reactions, name)
}

// Lookup returns the value registered under name.
func (r *Registry) Lookup(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.reactions[name]
	return v, ok
}

// Has returns true if name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.reactions))
	for name := range r.reactions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain returns a reaction that runs each reaction in order and joins their
// errors. Every reaction runs even if an earlier one fails.
func Chain(fns ...contracts.Reaction) contracts.Reaction {
	return func(ctx context.Context, changes *domain.ChangeSet) error {
		var errs []error
		for _, fn := range fns {
			if err := fn(ctx, changes); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

package domain

// DefaultReactionName is the reaction invoked for fields watched with the
// boolean sentinel when the watch list does not name one.
const DefaultReactionName = "changed"

// Watch maps one field to its reaction. Default marks the boolean sentinel:
// the field notifies the model's single default reaction instead of a
// per-field one.
type Watch struct {
	Field    string
	Reaction string
	Default  bool
}

// WatchSpec is the per-model configuration of watched fields, built once when
// the model is defined. Entry order is preserved.
type WatchSpec struct {
	model           string
	watches         []Watch
	index           map[string]int
	defaultReaction string
	presence        PresenceRule
	dups            []string
}

// WatchSpecOption customises a WatchSpec.
type WatchSpecOption func(*WatchSpec)

// WithDefaultReaction sets the reaction used by sentinel entries.
func WithDefaultReaction(name string) WatchSpecOption {
	return func(w *WatchSpec) {
		if name != "" {
			w.defaultReaction = name
		}
	}
}

// WithPresenceRule sets how proposed values are recognised.
func WithPresenceRule(rule PresenceRule) WatchSpecOption {
	return func(w *WatchSpec) { w.presence = rule }
}

// NewWatchSpec creates a WatchSpec. A field listed twice keeps its first
// entry; the duplicate is reported by Validate.
func NewWatchSpec(model string, watches []Watch, opts ...WatchSpecOption) *WatchSpec {
	w := &WatchSpec{
		model:           model,
		watches:         make([]Watch, 0, len(watches)),
		index:           make(map[string]int, len(watches)),
		defaultReaction: DefaultReactionName,
		presence:        PresenceTruthy,
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, watch := range watches {
		if _, dup := w.index[watch.Field]; dup {
			w.dups = append(w.dups, watch.Field)
			continue
		}
		w.index[watch.Field] = len(w.watches)
		w.watches = append(w.watches, watch)
	}
	return w
}

// Model returns the model name.
func (w *WatchSpec) Model() string { return w.model }

// DefaultReaction returns the reaction used by sentinel entries.
func (w *WatchSpec) DefaultReaction() string { return w.defaultReaction }

// Presence returns the presence rule.
func (w *WatchSpec) Presence() PresenceRule { return w.presence }

// Fields returns the watched field names in declaration order.
func (w *WatchSpec) Fields() []string {
	fields := make([]string, len(w.watches))
	for i, watch := range w.watches {
		fields[i] = watch.Field
	}
	return fields
}

// Watches returns a copy of the entries in declaration order.
func (w *WatchSpec) Watches() []Watch {
	out := make([]Watch, len(w.watches))
	copy(out, w.watches)
	return out
}

// Lookup returns the entry for a field.
func (w *WatchSpec) Lookup(field string) (Watch, bool) {
	i, ok := w.index[field]
	if !ok {
		return Watch{}, false
	}
	return w.watches[i], true
}

// Watched returns true if the field is watched.
func (w *WatchSpec) Watched(field string) bool {
	_, ok := w.index[field]
	return ok
}

// ReactionResolver resolves reaction identifiers to callables. It is
// satisfied by the reaction registry.
type ReactionResolver interface {
	Has(name string) bool
}

// Validate checks the watch list against the model schema and, when resolver is
// not nil, the reaction registry. Problems are returned for logging; they
// never make the watch list unusable.
func (w *WatchSpec) Validate(schema []string, resolver ReactionResolver) []*ConfigurationError {
	var problems []*ConfigurationError

	if len(w.watches) == 0 {
		problems = append(problems, &ConfigurationError{Err: ErrEmptyWatchSpec})
	}

	for _, field := range w.dups {
		problems = append(problems, &ConfigurationError{Field: field, Err: ErrDuplicateField})
	}

	problems = append(problems, w.conflicts()...)

	known := make(map[string]bool, len(schema))
	for _, f := range schema {
		known[f] = true
	}

	for _, watch := range w.watches {
		if schema != nil && !known[watch.Field] {
			problems = append(problems, &ConfigurationError{Field: watch.Field, Err: ErrUnknownField})
		}
		if resolver == nil {
			continue
		}
		reaction := w.ReactionFor(watch)
		if !resolver.Has(reaction) {
			problems = append(problems, &ConfigurationError{Field: watch.Field, Reaction: reaction, Err: ErrReactionNotFound})
		}
	}

	return problems
}

// conflicts reports named entries sharing the default reaction's name while
// sentinel entries use it too. One name cannot resolve to both shapes.
func (w *WatchSpec) conflicts() []*ConfigurationError {
	usesDefault := false
	for _, watch := range w.watches {
		if watch.Default {
			usesDefault = true
			break
		}
	}
	if !usesDefault {
		return nil
	}

	var problems []*ConfigurationError
	for _, watch := range w.watches {
		if !watch.Default && watch.Reaction == w.defaultReaction {
			problems = append(problems, &ConfigurationError{Field: watch.Field, Reaction: watch.Reaction, Err: ErrReactionConflict})
		}
	}
	return problems
}

// ReactionFor returns the reaction identifier an entry resolves to.
func (w *WatchSpec) ReactionFor(watch Watch) string {
	if watch.Default {
		return w.defaultReaction
	}
	return watch.Reaction
}

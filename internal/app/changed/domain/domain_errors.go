package domain

import (
	"errors"
	"fmt"
)

// Domain errors as sentinel values
var (
	// Configuration errors
	ErrUnknownField      = errors.New("watched field is not part of the model schema")
	ErrReactionNotFound  = errors.New("reaction is not registered")
	ErrReactionSignature = errors.New("reaction has an unexpected signature")
	ErrEmptyWatchSpec    = errors.New("watch spec has no fields")
	ErrDuplicateField    = errors.New("field is watched more than once")
	ErrReactionConflict  = errors.New("reaction is used both per field and as the default reaction")

	// Resolution errors
	ErrRecordNotFound = errors.New("record not found")
	ErrMissingID      = errors.New("update target has no record id")

	// Dispatch errors
	ErrReactionPanicked = errors.New("reaction panicked")

	// Skip directive errors
	ErrInvalidSkipExpression = errors.New("invalid skip expression")
)

// ConfigurationError reports a watched field missing from the schema or a
// reaction identifier that does not resolve to a callable. It is logged and
// never aborts the triggering operation.
type ConfigurationError struct {
	Field    string
	Reaction string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Reaction != "" {
		return fmt.Sprintf("configuration error for field %q (reaction %q): %v", e.Field, e.Reaction, e.Err)
	}
	return fmt.Sprintf("configuration error for field %q: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ResolutionError reports that the prior state of a record could not be
// loaded by id. It aborts the save.
type ResolutionError struct {
	ID  string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve prior state of %q: %v", e.ID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// QueryError reports a failed candidate query. It aborts the save.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("candidate query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// DispatchError reports a failed reaction invocation. It is captured in the
// DispatchReport and never propagated to the host.
type DispatchError struct {
	Field    string
	Reaction string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("reaction %q for field %q failed: %v", e.Reaction, e.Field, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

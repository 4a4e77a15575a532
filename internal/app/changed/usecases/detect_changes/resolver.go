package detect_changes

import (
	"context"
	"fmt"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// Resolver loads the prior state of the records an update targets.
type Resolver struct {
	finder contracts.RecordFinder
}

// NewResolver creates a new prior-state resolver.
func NewResolver(finder contracts.RecordFinder) *Resolver {
	return &Resolver{finder: finder}
}

// Resolve returns one snapshot per record the update may change, restricted
// to fields. It issues at most one read.
func (r *Resolver) Resolve(ctx context.Context, target domain.UpdateTarget, fields []string, rule domain.PresenceRule) ([]domain.Snapshot, error) {
	switch t := target.(type) {
	case domain.KnownInstance:
		if t.ID == "" {
			return nil, &domain.ResolutionError{Err: domain.ErrMissingID}
		}
		return []domain.Snapshot{{ID: t.ID, Values: t.Before.Copy()}}, nil

	case domain.InstanceByID:
		if t.ID == "" {
			return nil, &domain.ResolutionError{Err: domain.ErrMissingID}
		}
		values, err := r.finder.FindByID(ctx, t.ID, fields)
		if err != nil {
			return nil, &domain.ResolutionError{ID: t.ID, Err: err}
		}
		return []domain.Snapshot{{ID: t.ID, Values: values}}, nil

	case domain.Predicate:
		cond, ok := CandidateCondition(t.Where, t.After, fields, rule)
		if !ok {
			return nil, nil
		}
		snapshots, err := r.finder.Find(ctx, cond, fields)
		if err != nil {
			return nil, &domain.QueryError{Err: err}
		}
		return snapshots, nil

	default:
		return nil, fmt.Errorf("unsupported update target %T", target)
	}
}

// CandidateCondition narrows a bulk update's predicate to the records where
// at least one proposed watched field differs from the stored value. It
// returns false when no watched field is proposed, in which case nothing can
// change and no query is needed.
//
// Values that cannot be bound as query parameters make the inequality
// disjunction unsafe to express, so the predicate is used on its own.
func CandidateCondition(where query.Condition, after domain.FieldValues, fields []string, rule domain.PresenceRule) (query.Condition, bool) {
	var differs []query.Condition
	bindable := true
	for _, field := range fields {
		v, ok := rule.Proposes(after, field)
		if !ok {
			continue
		}
		if !query.Bindable(v) {
			bindable = false
		}
		differs = append(differs, query.Differs(field, v))
	}

	if len(differs) == 0 {
		return nil, false
	}
	if !bindable {
		return where, true
	}
	return query.And(where, query.Or(differs...)), true
}

package contracts

import (
	"context"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// Reaction handles the ChangeSet of one field.
type Reaction func(ctx context.Context, changes *domain.ChangeSet) error

// DefaultReaction handles the ids affected by a save when fields are watched
// with the boolean sentinel.
type DefaultReaction func(ctx context.Context, ids []string) error

// Registry resolves reaction identifiers at dispatch time. Lookup returns
// whatever was registered under name; callers check the shape they need.
type Registry interface {
	Lookup(name string) (interface{}, bool)
	Has(name string) bool
}

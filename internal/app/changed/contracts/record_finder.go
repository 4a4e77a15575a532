package contracts

import (
	"context"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// RecordFinder is the query facade the change detector reads prior state
// through. Implementations exist for Spanner, SQL databases and MongoDB.
type RecordFinder interface {
	// FindByID returns the requested fields of one record.
	// Returns domain.ErrRecordNotFound if the record does not exist.
	FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error)

	// Find returns the id and requested fields of every record matching
	// where. A nil where matches every record.
	Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error)
}

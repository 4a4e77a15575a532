package repo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/spanner"
	sppb "cloud.google.com/go/spanner/apiv1/spannerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// SpannerFinder reads prior state from a Spanner table keyed by a single
// STRING primary key column.
type SpannerFinder struct {
	client *spanner.Client
	table  string
	cfg    finderConfig
}

// NewSpannerFinder creates a finder over table.
func NewSpannerFinder(client *spanner.Client, table string, opts ...FinderOption) *SpannerFinder {
	return &SpannerFinder{
		client: client,
		table:  table,
		cfg:    newFinderConfig(DefaultIDColumn, opts),
	}
}

var _ contracts.RecordFinder = (*SpannerFinder)(nil)

// FindByID reads one row.
func (f *SpannerFinder) FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error) {
	row, err := f.client.Single().ReadRow(ctx, f.table, spanner.Key{id}, fields)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read %s row: %w", f.table, err)
	}

	values, err := decodeRow(row, fields, 0)
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Find runs one query for the rows matching where.
func (f *SpannerFinder) Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error) {
	cols := selectColumns(f.cfg.idColumn, fields)
	stmt := query.From(f.table).Select(cols...).Where(where).Build()

	iter := f.client.Single().Query(ctx, stmt)
	defer iter.Stop()

	var snapshots []domain.Snapshot
	for {
		row, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s rows: %w", f.table, err)
		}

		var idVal spanner.GenericColumnValue
		if err := row.Column(0, &idVal); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", f.table, err)
		}
		id, err := decodeGeneric(idVal)
		if err != nil {
			return nil, err
		}

		values, err := decodeRow(row, cols[1:], 1)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, domain.Snapshot{ID: fmt.Sprint(id), Values: values})
	}
	return snapshots, nil
}

// decodeRow decodes columns starting at offset into values keyed by names.
func decodeRow(row *spanner.Row, names []string, offset int) (domain.FieldValues, error) {
	values := make(domain.FieldValues, len(names))
	for i, name := range names {
		var gcv spanner.GenericColumnValue
		if err := row.Column(offset+i, &gcv); err != nil {
			return nil, fmt.Errorf("failed to scan column %s: %w", name, err)
		}
		v, err := decodeGeneric(gcv)
		if err != nil {
			return nil, fmt.Errorf("failed to decode column %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}

// decodeGeneric converts a Spanner value to the Go value the diff engine
// compares. NULL becomes nil.
func decodeGeneric(gcv spanner.GenericColumnValue) (interface{}, error) {
	switch gcv.Type.GetCode() {
	case sppb.TypeCode_STRING:
		var v spanner.NullString
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.StringVal, nil
	case sppb.TypeCode_INT64:
		var v spanner.NullInt64
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Int64, nil
	case sppb.TypeCode_FLOAT64:
		var v spanner.NullFloat64
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Float64, nil
	case sppb.TypeCode_BOOL:
		var v spanner.NullBool
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Bool, nil
	case sppb.TypeCode_TIMESTAMP:
		var v spanner.NullTime
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Time, nil
	case sppb.TypeCode_DATE:
		var v spanner.NullDate
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Date.String(), nil
	case sppb.TypeCode_NUMERIC:
		var v spanner.NullNumeric
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return &v.Numeric, nil
	case sppb.TypeCode_JSON:
		var v spanner.NullJSON
		if err := gcv.Decode(&v); err != nil || !v.Valid {
			return nil, err
		}
		return v.Value, nil
	case sppb.TypeCode_BYTES:
		var v []byte
		if err := gcv.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		// Arrays and structs keep their wire form.
		return gcv.Value.AsInterface(), nil
	}
}

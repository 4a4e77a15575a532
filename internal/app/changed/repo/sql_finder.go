package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// Querier is the subset of *sql.DB and *sql.Tx the SQL finder needs, so
// prior state can be read inside the host's transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// SQLFinder reads prior state from a SQL table through database/sql. The
// driver must accept @name parameters (SQLite does).
type SQLFinder struct {
	db    Querier
	table string
	cfg   finderConfig
}

// NewSQLFinder creates a finder over table.
func NewSQLFinder(db Querier, table string, opts ...FinderOption) *SQLFinder {
	return &SQLFinder{
		db:    db,
		table: table,
		cfg:   newFinderConfig(DefaultIDColumn, opts),
	}
}

var _ contracts.RecordFinder = (*SQLFinder)(nil)

// WithQuerier returns a finder reading through q, typically a transaction.
func (f *SQLFinder) WithQuerier(q Querier) *SQLFinder {
	clone := *f
	clone.db = q
	return &clone
}

// FindByID reads one row.
func (f *SQLFinder) FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error) {
	snapshots, err := f.find(ctx, query.Eq(f.cfg.idColumn, id), fields, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return snapshots[0].Values, nil
}

// Find runs one query for the rows matching where.
func (f *SQLFinder) Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error) {
	return f.find(ctx, where, fields, 0)
}

func (f *SQLFinder) find(ctx context.Context, where query.Condition, fields []string, limit int64) ([]domain.Snapshot, error) {
	cols := selectColumns(f.cfg.idColumn, fields)
	b := query.From(f.table).Select(cols...).Where(where)
	if limit > 0 {
		b = b.Limit(limit)
	}
	stmt := b.Build()

	rows, err := f.db.QueryContext(ctx, stmt.SQL, query.Args(stmt)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", f.table, err)
	}
	defer rows.Close()

	var snapshots []domain.Snapshot
	for rows.Next() {
		dest := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", f.table, err)
		}

		values := make(domain.FieldValues, len(cols)-1)
		for i, col := range cols[1:] {
			values[col] = dest[i+1]
		}
		snapshots = append(snapshots, domain.Snapshot{ID: idString(dest[0]), Values: values})
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", f.table, err)
	}
	return snapshots, nil
}

func idString(v interface{}) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}

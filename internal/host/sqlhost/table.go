// Package sqlhost is a table-backed model over database/sql that exposes the
// before/after save hook points change detection attaches to.
package sqlhost

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"cloud.google.com/go/spanner"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/app/changed/repo"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrEmptyUpdate   = errors.New("update sets no columns")
	ErrMissingID     = errors.New("record id is required")
	ErrUnknownTable  = errors.New("table not found")
)

// Result describes a completed save.
type Result struct {
	// Save is the operation context the hooks saw. Hooks leave their
	// per-operation results in it.
	Save         *contracts.SaveContext
	RowsAffected int64
}

// Option configures a Table.
type Option func(*Table)

// WithIDColumn overrides the primary key column (default "id").
func WithIDColumn(column string) Option {
	return func(t *Table) { t.idColumn = column }
}

// WithColumnTypes sets the declared SQL type of each column. Proposed values
// are converted to what the column stores before they are diffed or bound.
// Columns without a type keep driver conversion only.
func WithColumnTypes(types map[string]string) Option {
	return func(t *Table) {
		for c, decl := range types {
			t.affinity[c] = repo.ColumnAffinity(decl)
		}
	}
}

// WithLogger sets the logger used for after-save hook failures.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// Table is one model stored in one SQL table.
type Table struct {
	db       *sql.DB
	model    string
	table    string
	idColumn string
	columns  []string
	known    map[string]bool
	affinity map[string]repo.Affinity
	finder   *repo.SQLFinder
	logger   *slog.Logger

	mu     sync.RWMutex
	before []contracts.BeforeSaveHook
	after  []contracts.AfterSaveHook
}

// New creates a model named model over table with the given non-key columns.
func New(db *sql.DB, model, table string, columns []string, opts ...Option) *Table {
	t := &Table{
		db:       db,
		model:    model,
		table:    table,
		idColumn: repo.DefaultIDColumn,
		columns:  append([]string(nil), columns...),
		known:    make(map[string]bool, len(columns)),
		affinity: make(map[string]repo.Affinity, len(columns)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, c := range t.columns {
		t.known[c] = true
	}
	t.finder = repo.NewSQLFinder(db, table, repo.WithIDColumn(t.idColumn))
	return t
}

// Load creates a model over an existing SQLite table, reading its columns
// and declared types from the catalog. The id column is excluded.
func Load(ctx context.Context, db *sql.DB, model, table string, opts ...Option) (*Table, error) {
	cfg := &Table{idColumn: repo.DefaultIDColumn, affinity: map[string]repo.Affinity{}}
	for _, opt := range opts {
		opt(cfg)
	}

	rows, err := db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	types := make(map[string]string)
	for rows.Next() {
		var name, decl string
		if err := rows.Scan(&name, &decl); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		if name == cfg.idColumn {
			continue
		}
		columns = append(columns, name)
		types[name] = decl
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	return New(db, model, table, columns, append([]Option{WithColumnTypes(types)}, opts...)...), nil
}

var _ contracts.HookRegistrar = (*Table)(nil)

func (t *Table) ModelName() string              { return t.model }
func (t *Table) Schema() []string               { return append([]string(nil), t.columns...) }
func (t *Table) Finder() contracts.RecordFinder { return t.finder }

func (t *Table) BeforeSave(hook contracts.BeforeSaveHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.before = append(t.before, hook)
}

func (t *Table) AfterSave(hook contracts.AfterSaveHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.after = append(t.after, hook)
}

// Get reads every column of one record.
func (t *Table) Get(ctx context.Context, id string) (domain.FieldValues, error) {
	return t.finder.FindByID(ctx, id, t.columns)
}

// Create inserts a new record.
func (t *Table) Create(ctx context.Context, id string, values domain.FieldValues, opts contracts.SaveOptions) (*Result, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	values, cols, err := t.normalize(values)
	if err != nil {
		return nil, err
	}

	save := contracts.NewSaveContext(t.model, domain.KnownInstance{ID: id, After: values}, true, opts)

	b := query.InsertInto(t.table).Set(t.idColumn, id)
	for _, c := range cols {
		b = b.Set(c, values[c])
	}

	return t.save(ctx, save, b.Build(), false)
}

// Update writes changes to a record whose current state the caller already
// holds. before must carry the record's values; it is not re-read. A missing
// record fails with domain.ErrRecordNotFound and nothing is dispatched.
func (t *Table) Update(ctx context.Context, id string, before, changes domain.FieldValues, opts contracts.SaveOptions) (*Result, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	changes, cols, err := t.normalize(changes)
	if err != nil {
		return nil, err
	}
	target := domain.KnownInstance{ID: id, Before: t.stored(before), After: changes}
	return t.update(ctx, target, query.Eq(t.idColumn, id), changes, cols, true, opts)
}

// UpdateByID writes changes to the record with the given id.
func (t *Table) UpdateByID(ctx context.Context, id string, changes domain.FieldValues, opts contracts.SaveOptions) (*Result, error) {
	if id == "" {
		return nil, ErrMissingID
	}
	changes, cols, err := t.normalize(changes)
	if err != nil {
		return nil, err
	}
	target := domain.InstanceByID{ID: id, After: changes}
	return t.update(ctx, target, query.Eq(t.idColumn, id), changes, cols, true, opts)
}

// UpdateAll writes changes to every record matching where.
func (t *Table) UpdateAll(ctx context.Context, where query.Condition, changes domain.FieldValues, opts contracts.SaveOptions) (*Result, error) {
	changes, cols, err := t.normalize(changes)
	if err != nil {
		return nil, err
	}
	target := domain.Predicate{Where: where, After: changes}
	return t.update(ctx, target, where, changes, cols, false, opts)
}

// update writes changes to the rows matching where. With requireRow, a
// write that touches no row is rolled back and fails as not found.
func (t *Table) update(ctx context.Context, target domain.UpdateTarget, where query.Condition, changes domain.FieldValues, cols []string, requireRow bool, opts contracts.SaveOptions) (*Result, error) {
	if len(cols) == 0 {
		return nil, ErrEmptyUpdate
	}

	save := contracts.NewSaveContext(t.model, target, false, opts)
	b := query.Update(t.table).Where(where)
	for _, c := range cols {
		b = b.Set(c, changes[c])
	}
	return t.save(ctx, save, b.Build(), requireRow)
}

// save runs the before hooks, the write in its own transaction, then the
// after hooks once the transaction has committed.
func (t *Table) save(ctx context.Context, save *contracts.SaveContext, stmt spanner.Statement, requireRow bool) (*Result, error) {
	t.mu.RLock()
	before := append([]contracts.BeforeSaveHook(nil), t.before...)
	after := append([]contracts.AfterSaveHook(nil), t.after...)
	t.mu.RUnlock()

	for _, hook := range before {
		if err := hook(ctx, save); err != nil {
			return nil, fmt.Errorf("before save %s: %w", t.model, err)
		}
	}

	rows, err := t.write(ctx, stmt, requireRow)
	if err != nil {
		return nil, err
	}

	result := &Result{Save: save, RowsAffected: rows}
	for _, hook := range after {
		if err := hook(ctx, save); err != nil {
			t.logger.Error("after save hook failed", "model", t.model, "error", err)
		}
	}
	return result, nil
}

func (t *Table) write(ctx context.Context, stmt spanner.Statement, requireRow bool) (int64, error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, stmt.SQL, query.Args(stmt)...)
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", t.table, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 && requireRow {
		return 0, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, t.table)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", t.table, err)
	}
	return rows, nil
}

// checkColumns returns the columns of values in sorted order, rejecting
// names outside the schema.
func (t *Table) checkColumns(values domain.FieldValues) ([]string, error) {
	cols := make([]string, 0, len(values))
	for c := range values {
		if !t.known[c] {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.table, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols, nil
}

// normalize checks values against the schema and converts each one to what
// its column stores, so the diff and the write see the same value.
func (t *Table) normalize(values domain.FieldValues) (domain.FieldValues, []string, error) {
	cols, err := t.checkColumns(values)
	if err != nil {
		return nil, nil, err
	}
	if values == nil {
		return nil, cols, nil
	}
	out := make(domain.FieldValues, len(values))
	for _, c := range cols {
		out[c] = t.affinity[c].Storage(values[c])
	}
	return out, cols, nil
}

// stored converts the values of known columns and keeps the rest as given.
func (t *Table) stored(values domain.FieldValues) domain.FieldValues {
	if values == nil {
		return nil
	}
	out := make(domain.FieldValues, len(values))
	for c, v := range values {
		if t.known[c] {
			v = t.affinity[c].Storage(v)
		}
		out[c] = v
	}
	return out
}

package query

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/spanner"
)

// Direction represents ORDER BY direction.
type Direction int

const (
	// Asc represents ascending order.
	Asc Direction = iota
	// Desc represents descending order.
	Desc
)

type statementKind int

const (
	kindSelect statementKind = iota
	kindInsert
	kindUpdate
	kindDelete
)

type assignment struct {
	column string
	value  interface{}
}

// Builder constructs SELECT, INSERT, UPDATE and DELETE statements.
// It provides a fluent API with WHERE clauses, ORDER BY, LIMIT and OFFSET,
// and auto-generates parameter names. Every method returns a new Builder.
// The generated statement uses named parameters and runs unchanged on
// Spanner and SQLite.
//
// Parameter names: WHERE values are p0..pN, assigned values are s0..sN,
// pagination uses limit and offset.
type Builder struct {
	kind         statementKind
	table        string
	selectCols   []string
	assignments  []assignment
	whereClauses []Condition
	orderByCol   string
	orderByDir   Direction
	limitVal     int64
	offsetVal    int64
}

// From creates a SELECT builder for the specified table.
func From(table string) *Builder {
	return &Builder{kind: kindSelect, table: table}
}

// InsertInto creates an INSERT builder. Columns are added with Set.
func InsertInto(table string) *Builder {
	return &Builder{kind: kindInsert, table: table}
}

// Update creates an UPDATE builder. Columns are added with Set.
func Update(table string) *Builder {
	return &Builder{kind: kindUpdate, table: table}
}

// DeleteFrom creates a DELETE builder.
func DeleteFrom(table string) *Builder {
	return &Builder{kind: kindDelete, table: table}
}

// Select specifies the columns to retrieve.
func (b *Builder) Select(columns ...string) *Builder {
	newBuilder := b.clone()
	newBuilder.selectCols = append(newBuilder.selectCols, columns...)
	return newBuilder
}

// Set assigns value to column in an INSERT or UPDATE. Columns are written
// in the order Set is called.
func (b *Builder) Set(column string, value interface{}) *Builder {
	newBuilder := b.clone()
	newBuilder.assignments = append(newBuilder.assignments, assignment{column: column, value: value})
	return newBuilder
}

// Where adds a WHERE condition.
// Multiple calls are combined with AND logic. A nil condition is ignored.
func (b *Builder) Where(condition Condition) *Builder {
	if condition == nil {
		return b
	}
	newBuilder := b.clone()
	newBuilder.whereClauses = append(newBuilder.whereClauses, condition)
	return newBuilder
}

// OrderBy specifies the column and direction for sorting.
func (b *Builder) OrderBy(column string, direction Direction) *Builder {
	newBuilder := b.clone()
	newBuilder.orderByCol = column
	newBuilder.orderByDir = direction
	return newBuilder
}

// Limit sets the maximum number of rows to return.
func (b *Builder) Limit(limit int64) *Builder {
	newBuilder := b.clone()
	newBuilder.limitVal = limit
	return newBuilder
}

// Offset sets the number of rows to skip.
func (b *Builder) Offset(offset int64) *Builder {
	newBuilder := b.clone()
	newBuilder.offsetVal = offset
	return newBuilder
}

// Count returns a SELECT builder that generates a COUNT(*) query
// with the same FROM and WHERE clauses.
func (b *Builder) Count() *Builder {
	newBuilder := b.clone()
	newBuilder.kind = kindSelect
	newBuilder.selectCols = []string{"COUNT(*)"}
	newBuilder.assignments = nil
	// Clear pagination for count query
	newBuilder.limitVal = 0
	newBuilder.offsetVal = 0
	newBuilder.orderByCol = ""
	return newBuilder
}

// Build constructs the final spanner.Statement with SQL and parameters.
func (b *Builder) Build() spanner.Statement {
	var sql strings.Builder
	params := make(map[string]interface{})

	switch b.kind {
	case kindInsert:
		b.writeInsert(&sql, params)
		return spanner.Statement{SQL: sql.String(), Params: params}
	case kindUpdate:
		sql.WriteString("UPDATE ")
		sql.WriteString(b.table)
		sql.WriteString(" SET ")
		sets := make([]string, len(b.assignments))
		for i, a := range b.assignments {
			name := fmt.Sprintf("s%d", i)
			sets[i] = a.column + " = @" + name
			params[name] = a.value
		}
		sql.WriteString(strings.Join(sets, ", "))
	case kindDelete:
		sql.WriteString("DELETE FROM ")
		sql.WriteString(b.table)
	default:
		sql.WriteString("SELECT ")
		if len(b.selectCols) == 0 {
			sql.WriteString("*")
		} else {
			sql.WriteString(strings.Join(b.selectCols, ", "))
		}
		sql.WriteString(" FROM ")
		sql.WriteString(b.table)
	}

	b.writeWhere(&sql, params)
	if b.kind != kindSelect {
		return spanner.Statement{SQL: sql.String(), Params: params}
	}

	// ORDER BY clause
	if b.orderByCol != "" {
		sql.WriteString(" ORDER BY ")
		sql.WriteString(b.orderByCol)
		if b.orderByDir == Desc {
			sql.WriteString(" DESC")
		} else {
			sql.WriteString(" ASC")
		}
	}

	// LIMIT clause
	if b.limitVal > 0 {
		sql.WriteString(" LIMIT @limit")
		params["limit"] = b.limitVal
	}

	// OFFSET clause
	if b.offsetVal > 0 {
		sql.WriteString(" OFFSET @offset")
		params["offset"] = b.offsetVal
	}

	return spanner.Statement{
		SQL:    sql.String(),
		Params: params,
	}
}

func (b *Builder) writeInsert(sql *strings.Builder, params map[string]interface{}) {
	cols := make([]string, len(b.assignments))
	placeholders := make([]string, len(b.assignments))
	for i, a := range b.assignments {
		name := fmt.Sprintf("s%d", i)
		cols[i] = a.column
		placeholders[i] = "@" + name
		params[name] = a.value
	}
	fmt.Fprintf(sql, "INSERT INTO %s (%s) VALUES (%s)", b.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

func (b *Builder) writeWhere(sql *strings.Builder, params map[string]interface{}) {
	if len(b.whereClauses) == 0 {
		return
	}
	sql.WriteString(" WHERE ")
	whereParts := make([]string, 0, len(b.whereClauses))
	paramIndex := 0
	for _, condition := range b.whereClauses {
		fragment, condParams := condition.SQL(paramIndex)
		whereParts = append(whereParts, fragment)
		for k, v := range condParams {
			params[k] = v
		}
		paramIndex += len(condParams)
	}
	sql.WriteString(strings.Join(whereParts, " AND "))
}

// clone creates a shallow copy of the builder for immutability.
func (b *Builder) clone() *Builder {
	newBuilder := *b
	newBuilder.selectCols = append([]string(nil), b.selectCols...)
	newBuilder.assignments = append([]assignment(nil), b.assignments...)
	newBuilder.whereClauses = append([]Condition(nil), b.whereClauses...)
	return &newBuilder
}

// String returns a human-readable representation for debugging.
func (b *Builder) String() string {
	stmt := b.Build()
	return fmt.Sprintf("SQL: %s\nParams: %v", stmt.SQL, stmt.Params)
}

// Args converts the statement's parameters to database/sql named arguments,
// sorted by name.
func Args(stmt spanner.Statement) []interface{} {
	names := make([]string, 0, len(stmt.Params))
	for name := range stmt.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, len(names))
	for i, name := range names {
		args[i] = sql.Named(name, stmt.Params[name])
	}
	return args
}

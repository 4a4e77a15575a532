package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// OpenSQLite opens an in-memory SQLite database closed at test end. The pool
// is limited to one connection so every query sees the same database.
func OpenSQLite(t *testing.T, ddl ...string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open sqlite")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "failed to apply ddl")
	}
	return db
}

// PeopleDDL creates the table used by store and host tests.
const PeopleDDL = `CREATE TABLE people (
	id TEXT PRIMARY KEY,
	name TEXT,
	nickname TEXT,
	age INTEGER CHECK (age IS NULL OR age >= 0),
	status TEXT,
	title TEXT,
	flag INTEGER
)`

// SeedPeople inserts the standard fixture rows.
func SeedPeople(t *testing.T, db *sql.DB) {
	t.Helper()

	rows := []struct {
		id, name, nickname string
		age                int64
		status, title      string
	}{
		{"joe", "Joe Blogs", "joe", 21, "active", "Mr"},
		{"bilbo", "Bilbo Baggins", "bilbo", 111, "active", "Mr"},
		{"tina", "Tina Turner", "tina", 30, "pending", "Ms"},
	}
	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO people (id, name, nickname, age, status, title) VALUES (?, ?, ?, ?, ?, ?)`,
			r.id, r.name, r.nickname, r.age, r.status, r.title,
		)
		require.NoError(t, err, "failed to seed people")
	}
}

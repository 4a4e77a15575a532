package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
	"github.com/light-bringer/fieldwatch/internal/testutil"
)

func TestSQLFinder_FindByID(t *testing.T) {
	db := testutil.OpenSQLite(t, testutil.PeopleDDL)
	testutil.SeedPeople(t, db)
	finder := NewSQLFinder(db, "people")
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		values, err := finder.FindByID(ctx, "joe", []string{"name", "age", "status"})
		require.NoError(t, err)
		assert.Equal(t, domain.FieldValues{"name": "Joe Blogs", "age": int64(21), "status": "active"}, values)
	})

	t.Run("missing row", func(t *testing.T) {
		_, err := finder.FindByID(ctx, "ghost", []string{"name"})
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("null column", func(t *testing.T) {
		values, err := finder.FindByID(ctx, "joe", []string{"flag"})
		require.NoError(t, err)
		assert.True(t, values.Has("flag"))
		assert.Nil(t, values["flag"])
	})
}

func TestSQLFinder_Find(t *testing.T) {
	db := testutil.OpenSQLite(t, testutil.PeopleDDL)
	testutil.SeedPeople(t, db)
	finder := NewSQLFinder(db, "people")
	ctx := context.Background()

	t.Run("nil where returns every row", func(t *testing.T) {
		snapshots, err := finder.Find(ctx, nil, []string{"status"})
		require.NoError(t, err)
		assert.Len(t, snapshots, 3)
	})

	t.Run("candidate condition", func(t *testing.T) {
		cond := query.And(query.Eq("title", "Mr"), query.Or(query.Differs("status", "active"), query.Differs("age", int64(21))))
		snapshots, err := finder.Find(ctx, cond, []string{"status", "age"})
		require.NoError(t, err)
		require.Len(t, snapshots, 1)
		assert.Equal(t, "bilbo", snapshots[0].ID)
		assert.Equal(t, domain.FieldValues{"status": "active", "age": int64(111)}, snapshots[0].Values)
	})

	t.Run("differs matches null columns", func(t *testing.T) {
		snapshots, err := finder.Find(ctx, query.Differs("flag", int64(1)), []string{"flag"})
		require.NoError(t, err)
		assert.Len(t, snapshots, 3)
	})

	t.Run("empty or matches nothing", func(t *testing.T) {
		snapshots, err := finder.Find(ctx, query.Or(), []string{"status"})
		require.NoError(t, err)
		assert.Empty(t, snapshots)
	})

	t.Run("query failure", func(t *testing.T) {
		_, err := NewSQLFinder(db, "missing_table").Find(ctx, nil, []string{"status"})
		assert.Error(t, err)
	})
}

func TestSQLFinder_CustomIDColumn(t *testing.T) {
	db := testutil.OpenSQLite(t, `CREATE TABLE accounts (account_no INTEGER PRIMARY KEY, tier TEXT)`)
	_, err := db.Exec(`INSERT INTO accounts (account_no, tier) VALUES (7, 'gold')`)
	require.NoError(t, err)

	finder := NewSQLFinder(db, "accounts", WithIDColumn("account_no"))

	values, err := finder.FindByID(context.Background(), "7", []string{"tier"})
	require.NoError(t, err)
	assert.Equal(t, "gold", values["tier"])

	snapshots, err := finder.Find(context.Background(), nil, []string{"tier"})
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, "7", snapshots[0].ID)
}

func TestSelectColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "age"}, selectColumns("id", []string{"name", "id", "age"}))
}

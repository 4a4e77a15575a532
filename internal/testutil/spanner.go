package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/models/m_change_outbox"
)

// SetupSpannerTest creates a Spanner client against the emulator and cleans
// the tables before and after the test. The test is skipped when no emulator
// is configured.
func SetupSpannerTest(t *testing.T) *spanner.Client {
	t.Helper()

	if os.Getenv("SPANNER_EMULATOR_HOST") == "" {
		t.Skip("SPANNER_EMULATOR_HOST not set")
	}

	client, err := spanner.NewClient(context.Background(), GetTestSpannerDB())
	require.NoError(t, err, "failed to create Spanner client")

	CleanDatabase(t, client)
	t.Cleanup(func() {
		CleanDatabase(t, client)
		client.Close()
	})

	return client
}

// GetTestSpannerDB returns the test Spanner database string.
func GetTestSpannerDB() string {
	if db := os.Getenv("SPANNER_DATABASE"); db != "" {
		return db
	}
	return "projects/test-project/instances/test-instance/databases/fieldwatch-test"
}

// CleanDatabase deletes all rows from the test tables.
func CleanDatabase(t *testing.T, client *spanner.Client) {
	t.Helper()

	_, err := client.Apply(context.Background(), []*spanner.Mutation{
		spanner.Delete(m_change_outbox.TableName, spanner.AllKeys()),
		spanner.Delete("people", spanner.AllKeys()),
	})
	require.NoError(t, err, "failed to clean database")
}

// AssertRowCount asserts the number of rows in a table.
func AssertRowCount(t *testing.T, client *spanner.Client, table string, expectedCount int) {
	t.Helper()

	iter := client.Single().Query(context.Background(), spanner.Statement{
		SQL: fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	})
	defer iter.Stop()

	row, err := iter.Next()
	require.NoError(t, err, "failed to query row count")

	var count int64
	require.NoError(t, row.Columns(&count), "failed to parse count")
	require.Equal(t, int64(expectedCount), count, "unexpected row count in table %s", table)
}

// SeedSpannerPeople inserts the standard fixture rows into the people table.
func SeedSpannerPeople(t *testing.T, client *spanner.Client) {
	t.Helper()

	cols := []string{"id", "name", "nickname", "age", "status", "title"}
	_, err := client.Apply(context.Background(), []*spanner.Mutation{
		spanner.Insert("people", cols, []interface{}{"joe", "Joe Blogs", "joe", int64(21), "active", "Mr"}),
		spanner.Insert("people", cols, []interface{}{"bilbo", "Bilbo Baggins", "bilbo", int64(111), "active", "Mr"}),
		spanner.Insert("people", cols, []interface{}{"tina", "Tina Turner", "tina", int64(30), "pending", "Ms"}),
	})
	require.NoError(t, err, "failed to seed people")
}

package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/testutil"
)

const configTemplate = `
logging:
  level: error
store:
  backend: sqlite
  sqlite_path: %DB%
models:
  - name: Person
    table: people
    default_reaction: onPersonChanged
    watch:
      age: changeAge
      status: changeStatus
      title: true
`

// setupStore writes a seeded sqlite database and a config pointing at it.
func setupStore(t *testing.T, body string) string {
	t.Helper()
	for _, key := range []string{"FIELDWATCH_CONFIG", "SPANNER_DATABASE", "MONGODB_URL", "NATS_URL", "FIELDWATCH_LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "people.db")

	db, err := openSQLite(dbPath)
	require.NoError(t, err)
	_, err = db.Exec(testutil.PeopleDDL)
	require.NoError(t, err)
	testutil.SeedPeople(t, db)
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "fieldwatch.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.ReplaceAll(body, "%DB%", dbPath)), 0o600))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeSplit(t, args...)
	return out, err
}

// executeSplit runs the root command and returns stdout and stderr apart.
func executeSplit(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "fieldwatch", cmd.Use)

	for _, name := range []string{"validate", "inspect", "update", "relay", "outbox"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	list, _, err := cmd.Find([]string{"outbox", "list"})
	require.NoError(t, err)
	assert.Equal(t, "list", list.Name())

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cfg := setupStore(t, configTemplate)
	_, err := execute(t, "--config", cfg, "--format", "xml", "validate")
	assert.ErrorContains(t, err, "invalid format")
}

func TestValidate(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	out, err := execute(t, "--config", cfg, "validate", "--check-store")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Person: 3 watched field(s)")
}

func TestValidate_UnknownColumn(t *testing.T) {
	cfg := setupStore(t, strings.Replace(configTemplate, "title: true", "shoe_size: true", 1))

	out, err := execute(t, "--config", cfg, "--format", "json", "validate", "--check-store")
	require.Error(t, err)

	var checks []modelCheck
	require.NoError(t, json.Unmarshal([]byte(out), &checks))
	require.Len(t, checks, 1)
	require.Len(t, checks[0].Problems, 1)
	assert.Equal(t, "shoe_size", checks[0].Problems[0].Field)
}

func TestInspect(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	out, err := execute(t, "--config", cfg, "--format", "json", "inspect", "Person", "joe")
	require.NoError(t, err)

	var values map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Equal(t, "active", values["status"])
	assert.Equal(t, float64(21), values["age"])

	_, err = execute(t, "--config", cfg, "inspect", "Person", "ghost")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = execute(t, "--config", cfg, "inspect", "Robot", "r2")
	assert.ErrorContains(t, err, "not configured")
}

func TestUpdate_ByID(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	out, sinkOut, err := executeSplit(t, "--config", cfg, "update", "Person", "joe", "--set", "age=22", "--set", "status=active")
	require.NoError(t, err)

	assert.Contains(t, sinkOut, "Person.age[joe] = 22")
	assert.NotContains(t, sinkOut, "Person.status")
	assert.NotContains(t, out, "Person.age[joe]")
	assert.Contains(t, out, "1 row(s) written")
	assert.Contains(t, out, "changeAge")
	assert.Contains(t, out, "invoked")
}

func TestUpdate_BulkJSON(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	out, sinkOut, err := executeSplit(t, "--config", cfg, "--format", "json",
		"update", "Person", "--where", "title=Mr", "--set", "status=pending", "--set", "title=Dr")
	require.NoError(t, err)

	require.True(t, json.Valid([]byte(out)), "stdout holds only the report: %q", out)
	var view reportView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, int64(2), view.RowsAffected)
	require.Len(t, view.Outcomes, 2)

	byReaction := map[string]outcomeView{}
	for _, o := range view.Outcomes {
		byReaction[o.Reaction] = o
	}
	assert.Equal(t, 2, byReaction["changeStatus"].Records)
	assert.Equal(t, []string{"title"}, byReaction["onPersonChanged"].Fields)
	assert.Contains(t, sinkOut, "Person changed: [bilbo joe]")
}

func TestUpdate_Skip(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	_, sinkOut, err := executeSplit(t, "--config", cfg, "update", "Person", "joe", "--set", "age=30", "--set", "status=gone", "--skip", "age")
	require.NoError(t, err)
	assert.NotContains(t, sinkOut, "Person.age")
	assert.Contains(t, sinkOut, "Person.status[joe] = gone")

	out, err := execute(t, "--config", cfg, "update", "Person", "bilbo", "--set", "age=5", "--skip-all")
	require.NoError(t, err)
	assert.Contains(t, out, "no watched field changed")

	_, sinkOut, err = executeSplit(t, "--config", cfg, "update", "Person", "tina", "--set", "age=31", "--set", "status=x", "--skip-when", `field == "status"`)
	require.NoError(t, err)
	assert.Contains(t, sinkOut, "Person.age[tina] = 31")
	assert.NotContains(t, sinkOut, "Person.status")
}

func TestUpdate_SkipFlagsExclusive(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	for _, args := range [][]string{
		{"--skip-all", "--skip", "age"},
		{"--skip-all", "--skip-when", `field == "age"`},
		{"--skip", "age", "--skip-when", `field == "status"`},
	} {
		cmd := append([]string{"--config", cfg, "update", "Person", "joe", "--set", "age=40"}, args...)
		_, err := execute(t, cmd...)
		assert.ErrorContains(t, err, "none of the others can be", "%v", args)
	}

	out, err := execute(t, "--config", cfg, "--format", "json", "inspect", "Person", "joe")
	require.NoError(t, err)
	var joe map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &joe))
	assert.Equal(t, float64(21), joe["age"], "a rejected command writes nothing")
}

func TestUpdate_Errors(t *testing.T) {
	cfg := setupStore(t, configTemplate)

	_, err := execute(t, "--config", cfg, "update", "Person", "joe", "--set", "noequals")
	assert.ErrorContains(t, err, "expected field=value")

	_, err = execute(t, "--config", cfg, "update", "Person", "joe", "--where", "status=x", "--set", "age=1")
	assert.ErrorContains(t, err, "cannot be combined")

	_, err = execute(t, "--config", cfg, "update", "Person", "joe", "--set", "age=1", "--sink", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown sink")

	_, err = execute(t, "--config", cfg, "update", "Person", "ghost", "--set", "age=1")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"age=22", "flag=true", "status=pending", "ratio=0.5", "note=", "gone=null", "tags=[a, b]", "name=Joe=Bloggs"})
	require.NoError(t, err)

	assert.Equal(t, domain.FieldValues{
		"age":    22,
		"flag":   true,
		"status": "pending",
		"ratio":  0.5,
		"note":   "",
		"gone":   nil,
		"tags":   "[a, b]",
		"name":   "Joe=Bloggs",
	}, values)

	_, err = parseAssignments([]string{"=5"})
	assert.Error(t, err)
}

func TestMatchAll(t *testing.T) {
	assert.Nil(t, matchAll(nil))

	sql, params := matchAll(domain.FieldValues{"title": "Mr", "status": "active"}).SQL(0)
	assert.Equal(t, "(status = @p0 AND title = @p1)", sql)
	assert.Equal(t, map[string]interface{}{"p0": "active", "p1": "Mr"}, params)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	diffs := PerRecordDiff{
		"joe":   {"status": "pending", "age": 22},
		"bilbo": {"status": "pending"},
		"tina":  {"status": "archived"},
	}

	sets := Aggregate(diffs)
	require.Len(t, sets, 2)
	assert.Equal(t, []string{"age", "status"}, ChangedFields(sets))

	status := sets["status"]
	assert.Equal(t, "status", status.Field())
	assert.Equal(t, 3, status.Len())
	assert.Equal(t, []string{"bilbo", "joe", "tina"}, status.IDs())
	assert.Equal(t, []string{"bilbo", "joe"}, status.IDsFor("pending"))
	assert.Equal(t, []string{"tina"}, status.IDsFor("archived"))
	assert.Empty(t, status.IDsFor("active"))
	assert.Equal(t, []interface{}{"pending", "archived"}, status.Values())
	assert.NoError(t, status.Validate())

	v, ok := status.Value("tina")
	assert.True(t, ok)
	assert.Equal(t, "archived", v)

	age := sets["age"]
	assert.Equal(t, []string{"joe"}, age.IDs())
	assert.True(t, age.Has("joe"))
	assert.False(t, age.Has("bilbo"))
	assert.NoError(t, age.Validate())
}

func TestAggregate_DropsEmptyRecords(t *testing.T) {
	sets := Aggregate(PerRecordDiff{"joe": {}, "bilbo": {}})
	assert.Empty(t, sets)
}

func TestAggregate_OrderInsensitive(t *testing.T) {
	a := PerRecordDiff{}
	a["x"] = FieldValues{"status": "on"}
	a["y"] = FieldValues{"status": "off"}
	a["z"] = FieldValues{"status": "on"}

	b := PerRecordDiff{}
	b["z"] = FieldValues{"status": "on"}
	b["y"] = FieldValues{"status": "off"}
	b["x"] = FieldValues{"status": "on"}

	assert.Equal(t, Aggregate(a), Aggregate(b))
}

func TestChangeSet_ValueIndexing(t *testing.T) {
	sets := Aggregate(PerRecordDiff{
		"a": {"score": 1},
		"b": {"score": int64(1)},
		"c": {"score": "1"},
		"d": {"score": map[string]interface{}{"x": 1, "y": 2}},
	})
	score := sets["score"]

	assert.Equal(t, []string{"a", "b"}, score.IDsFor(1), "numbers of different widths share an index entry")
	assert.Equal(t, []string{"c"}, score.IDsFor("1"))
	assert.Equal(t, []string{"d"}, score.IDsFor(map[string]interface{}{"y": 2, "x": 1}))
	assert.Len(t, score.Values(), 3)
	assert.NoError(t, score.Validate())
}

func TestChangeSet_AccessorsReturnCopies(t *testing.T) {
	sets := Aggregate(PerRecordDiff{"a": {"status": "x"}})
	cs := sets["status"]

	ids := cs.IDs()
	ids[0] = "mutated"
	byValue := cs.IDsFor("x")
	byValue[0] = "mutated"
	values := cs.ValuesByID()
	values["a"] = "mutated"

	assert.Equal(t, []string{"a"}, cs.IDs())
	assert.Equal(t, []string{"a"}, cs.IDsFor("x"))
	v, _ := cs.Value("a")
	assert.Equal(t, "x", v)
	assert.NoError(t, cs.Validate())
}

func TestChangeSet_ValidateDetectsBrokenIndex(t *testing.T) {
	cs := newChangeSet("status")
	cs.add("a", "x")
	cs.idsByValue[valueKey("y")] = []string{"a"}

	assert.Error(t, cs.Validate())
}

func TestChangeSet_AddIgnoresDuplicateIDs(t *testing.T) {
	cs := newChangeSet("status")
	cs.add("a", "x")
	cs.add("a", "y")

	assert.Equal(t, 1, cs.Len())
	assert.Equal(t, []string{"a"}, cs.IDsFor("x"))
	assert.NoError(t, cs.Validate())
}

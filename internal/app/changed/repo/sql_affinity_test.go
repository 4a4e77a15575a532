package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/fieldwatch/internal/testutil"
)

func TestColumnAffinity(t *testing.T) {
	cases := map[string]Affinity{
		"INTEGER":          AffinityInteger,
		"bigint":           AffinityInteger,
		"VARCHAR(20)":      AffinityText,
		"text":             AffinityText,
		"CLOB":             AffinityText,
		"":                 AffinityBlob,
		"BLOB":             AffinityBlob,
		"REAL":             AffinityReal,
		"double precision": AffinityReal,
		"FLOAT":            AffinityReal,
		"NUMERIC":          AffinityNumeric,
		"DECIMAL(10,2)":    AffinityNumeric,
		"BOOLEAN":          AffinityNumeric,
		"DATETIME":         AffinityNumeric,
		"CHARINT":          AffinityInteger,
	}
	for declared, want := range cases {
		assert.Equal(t, want, ColumnAffinity(declared), declared)
	}
}

func TestAffinity_Storage(t *testing.T) {
	type custom struct{ A int }

	tests := []struct {
		name     string
		affinity Affinity
		in       interface{}
		want     interface{}
	}{
		{"nil", AffinityInteger, nil, nil},
		{"bool true as integer", AffinityInteger, true, int64(1)},
		{"bool false as integer", AffinityNumeric, false, int64(0)},
		{"bool in text column", AffinityText, true, "1"},
		{"int widened", AffinityBlob, 22, int64(22)},
		{"int in text column", AffinityText, 22, "22"},
		{"real in text column", AffinityText, 22.5, "22.5"},
		{"integral real in text column", AffinityText, 22.0, "22.0"},
		{"large real in text column", AffinityText, 1e20, "1.0e+20"},
		{"numeric text in integer column", AffinityInteger, "22", int64(22)},
		{"padded text in integer column", AffinityInteger, " 22 ", int64(22)},
		{"real text in numeric column", AffinityNumeric, "22.5", 22.5},
		{"exponent text in integer column", AffinityInteger, "1e3", int64(1000)},
		{"integral real in integer column", AffinityInteger, 22.0, int64(22)},
		{"fractional real in integer column", AffinityInteger, 22.5, 22.5},
		{"word stays text", AffinityInteger, "abc", "abc"},
		{"hex stays text", AffinityInteger, "0x10", "0x10"},
		{"nan text stays text", AffinityReal, "NaN", "NaN"},
		{"int in real column", AffinityReal, int64(3), 3.0},
		{"text in real column", AffinityReal, "3", 3.0},
		{"blob column keeps text", AffinityBlob, "22", "22"},
		{"bytes untouched", AffinityText, []byte("x"), []byte("x")},
		{"unbindable value unchanged", AffinityText, custom{A: 1}, custom{A: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.affinity.Storage(tt.in))
		})
	}
}

// Storage must predict what SQLite hands back after writing a value.
func TestAffinity_StorageMatchesSQLite(t *testing.T) {
	db := testutil.OpenSQLite(t, `CREATE TABLE typed (
		id INTEGER PRIMARY KEY,
		i INTEGER,
		t TEXT,
		r REAL,
		n NUMERIC,
		b
	)`)

	columns := map[string]Affinity{
		"i": AffinityInteger,
		"t": AffinityText,
		"r": AffinityReal,
		"n": AffinityNumeric,
		"b": AffinityBlob,
	}
	values := []interface{}{true, false, 22, int32(7), "22", "22.5", "abc", 22.0, 22.5, int64(-4)}

	for col, affinity := range columns {
		for i, v := range values {
			_, err := db.Exec("DELETE FROM typed")
			require.NoError(t, err)
			_, err = db.Exec("INSERT INTO typed (id, "+col+") VALUES (?, ?)", i, v)
			require.NoError(t, err)

			var got interface{}
			require.NoError(t, db.QueryRow("SELECT "+col+" FROM typed").Scan(&got))
			assert.Equal(t, got, affinity.Storage(v), "column %s value %#v", col, v)
		}
	}
}

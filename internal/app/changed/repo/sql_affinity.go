package repo

import (
	"database/sql/driver"
	"math"
	"strconv"
	"strings"
)

// Affinity is the storage class preference SQLite derives from a column's
// declared type.
type Affinity int

const (
	AffinityBlob Affinity = iota
	AffinityText
	AffinityNumeric
	AffinityInteger
	AffinityReal
)

func (a Affinity) String() string {
	switch a {
	case AffinityText:
		return "TEXT"
	case AffinityNumeric:
		return "NUMERIC"
	case AffinityInteger:
		return "INTEGER"
	case AffinityReal:
		return "REAL"
	default:
		return "BLOB"
	}
}

// ColumnAffinity applies SQLite's affinity rules to a declared column type.
// The rules are checked in order; the first match wins.
func ColumnAffinity(declared string) Affinity {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case t == "", strings.Contains(t, "BLOB"):
		return AffinityBlob
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// Storage returns v as a column with affinity a would store and read it
// back: driver conversion first, booleans as 0 or 1, then the affinity's
// text and numeric coercions. Values the driver cannot bind are returned
// unchanged.
func (a Affinity) Storage(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	dv, err := driver.DefaultParameterConverter.ConvertValue(v)
	if err != nil {
		return v
	}
	if b, ok := dv.(bool); ok {
		dv = int64(0)
		if b {
			dv = int64(1)
		}
	}

	switch a {
	case AffinityText:
		switch n := dv.(type) {
		case int64:
			return strconv.FormatInt(n, 10)
		case float64:
			return formatReal(n)
		}
	case AffinityInteger, AffinityNumeric:
		switch n := dv.(type) {
		case string:
			if num, ok := parseNumeric(n); ok {
				return integral(num)
			}
		case float64:
			return integral(n)
		}
	case AffinityReal:
		switch n := dv.(type) {
		case int64:
			return float64(n)
		case string:
			if num, ok := parseNumeric(n); ok {
				return toFloat(num)
			}
		}
	}
	return dv
}

// parseNumeric reads s as a decimal integer or real, allowing surrounding
// spaces. Hex, infinities and NaN stay text.
func parseNumeric(s string) (interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return nil, false
		}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// integral converts a real that holds an exact int64 to that integer.
func integral(v interface{}) interface{} {
	f, ok := v.(float64)
	if !ok {
		return v
	}
	if f == math.Trunc(f) && f >= -9.223372036854775808e18 && f < 9.223372036854775808e18 {
		return int64(f)
	}
	return f
}

func toFloat(v interface{}) interface{} {
	if i, ok := v.(int64); ok {
		return float64(i)
	}
	return v
}

// formatReal renders f the way SQLite converts a REAL to TEXT: 15
// significant digits, always with a fractional part.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', 15, 64)
	if strings.ContainsAny(s, ".IN") {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

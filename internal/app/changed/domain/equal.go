package domain

import (
	"math"
	"reflect"

	"github.com/google/cel-go/common/types"
)

// Equal reports whether two field values are deeply equal.
//
// Values are compared with CEL equality semantics: maps and lists compare
// structurally and numbers compare by value across integer and float widths,
// so a stored int64(22) equals a proposed int 22. Values CEL cannot represent
// fall back to reflect.DeepEqual.
func Equal(a, b interface{}) bool {
	av := types.DefaultTypeAdapter.NativeToValue(a)
	bv := types.DefaultTypeAdapter.NativeToValue(b)
	if types.IsError(av) || types.IsError(bv) {
		return reflect.DeepEqual(a, b)
	}

	res := av.Equal(bv)
	if types.IsError(res) {
		return reflect.DeepEqual(a, b)
	}
	return res == types.True
}

// IsEmpty reports whether v counts as "no value": nil, nil pointers, maps and
// slices, false, numeric zero, NaN and the empty string. Non-nil empty maps and
// slices are values.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() == 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f == 0 || math.IsNaN(f)
	case reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

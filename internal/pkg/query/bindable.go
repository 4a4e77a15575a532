package query

import (
	"math/big"
	"time"
)

// Bindable reports whether v can be passed as a scalar query parameter to
// every supported backend. Composite values (maps, slices other than []byte,
// structs) are not bindable and must be compared client-side.
func Bindable(v interface{}) bool {
	switch v.(type) {
	case nil,
		string, bool, []byte,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32,
		float32, float64,
		time.Time, big.Rat, *big.Rat:
		return true
	default:
		return false
	}
}

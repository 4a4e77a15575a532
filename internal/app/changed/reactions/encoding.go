package reactions

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
)

// EncodeFieldChanged renders a field notification as JSON:
//
//	{"model": "Person", "field": "status", "operationId": "...",
//	 "occurredAt": "...", "ids": {"joe": "pending"},
//	 "values": [{"value": "pending", "ids": ["joe"]}]}
//
// Values that JSON cannot key are listed rather than used as object keys.
func EncodeFieldChanged(event *domain.FieldChangedEvent) ([]byte, error) {
	cs := event.Changes

	ids := make(map[string]interface{}, cs.Len())
	for id, v := range cs.ValuesByID() {
		ids[id] = protoCompatible(v)
	}

	values := make([]interface{}, 0, len(cs.Values()))
	for _, v := range cs.Values() {
		values = append(values, map[string]interface{}{
			"value": protoCompatible(v),
			"ids":   stringsToList(cs.IDsFor(v)),
		})
	}

	return marshalStruct(map[string]interface{}{
		"model":       event.Model,
		"field":       cs.Field(),
		"operationId": event.OperationID,
		"occurredAt":  event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"ids":         ids,
		"values":      values,
	})
}

// EncodeRecordsChanged renders a default-reaction notification as JSON.
func EncodeRecordsChanged(event *domain.RecordsChangedEvent) ([]byte, error) {
	return marshalStruct(map[string]interface{}{
		"model":       event.Model,
		"operationId": event.OperationID,
		"occurredAt":  event.OccurredAt.UTC().Format(time.RFC3339Nano),
		"ids":         stringsToList(event.IDs),
	})
}

func marshalStruct(m map[string]interface{}) ([]byte, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification payload: %w", err)
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}
	return data, nil
}

func stringsToList(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// protoCompatible converts a field value into something structpb accepts.
func protoCompatible(v interface{}) interface{} {
	switch t := v.(type) {
	case nil, bool, string, float32, float64,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case *big.Rat:
		return t.FloatString(9)
	case []byte:
		return string(t)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = protoCompatible(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = protoCompatible(val)
		}
		return out
	default:
		// Round-trip through JSON to get maps, slices and scalars.
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		var generic interface{}
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Sprint(t)
		}
		return generic
	}
}

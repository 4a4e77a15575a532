package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBSON_Nil(t *testing.T) {
	assert.Equal(t, bson.D{}, BSON(nil))
}

func TestBSON_Comparisons(t *testing.T) {
	tests := []struct {
		name string
		cond Condition
		want bson.D
	}{
		{"eq", Eq("status", "active"), bson.D{{Key: "status", Value: bson.D{{Key: "$eq", Value: "active"}}}}},
		{"neq", Neq("status", "active"), bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: "active"}}}}},
		{"gt", Gt("age", 18), bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 18}}}}},
		{"lt", Lt("age", 65), bson.D{{Key: "age", Value: bson.D{{Key: "$lt", Value: 65}}}}},
		{"differs", Differs("age", 21), bson.D{{Key: "age", Value: bson.D{{Key: "$ne", Value: 21}}}}},
		{"is null", IsNull("nickname"), bson.D{{Key: "nickname", Value: nil}}},
		{"is not null", IsNotNull("nickname"), bson.D{{Key: "nickname", Value: bson.D{{Key: "$ne", Value: nil}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BSON(tt.cond))
		})
	}
}

func TestBSON_Groups(t *testing.T) {
	cond := And(
		Eq("title", "Mr"),
		Or(Differs("status", "pending"), Differs("age", 22)),
	)

	want := bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "title", Value: bson.D{{Key: "$eq", Value: "Mr"}}}},
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "status", Value: bson.D{{Key: "$ne", Value: "pending"}}}},
			bson.D{{Key: "age", Value: bson.D{{Key: "$ne", Value: 22}}}},
		}}},
	}}}

	assert.Equal(t, want, BSON(cond))
}

func TestBSON_EmptyGroups(t *testing.T) {
	assert.Equal(t, bson.D{}, BSON(And()))
	assert.Equal(t, bson.D{{Key: "$expr", Value: false}}, BSON(Or()))
}

func TestBindable(t *testing.T) {
	assert.True(t, Bindable("x"))
	assert.True(t, Bindable(42))
	assert.True(t, Bindable(nil))
	assert.True(t, Bindable([]byte("raw")))
	assert.False(t, Bindable(map[string]interface{}{"a": 1}))
	assert.False(t, Bindable([]string{"a"}))
	assert.False(t, Bindable(struct{}{}))
}

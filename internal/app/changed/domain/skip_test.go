package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipDirective(t *testing.T) {
	tests := []struct {
		name      string
		directive SkipDirective
		skipped   []string
		kept      []string
		all       bool
	}{
		{"zero value", SkipDirective{}, nil, []string{"age", "status"}, false},
		{"none", SkipNone(), nil, []string{"age"}, false},
		{"all", SkipAll(), []string{"age", "status"}, nil, true},
		{"bool false", SkipBool(false), nil, []string{"age"}, false},
		{"bool true", SkipBool(true), []string{"age"}, nil, true},
		{"single field", SkipField("age"), []string{"age"}, []string{"status", "ag"}, false},
		{"field list", SkipFields("age", "status"), []string{"age", "status"}, []string{"name"}, false},
		{"field set", SkipMatching(FieldSet{"age": true, "status": false}), []string{"age"}, []string{"status"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.all, tt.directive.All())
			for _, f := range tt.skipped {
				assert.True(t, tt.directive.Skips(f), "expected %s to be skipped", f)
			}
			for _, f := range tt.kept {
				assert.False(t, tt.directive.Skips(f), "expected %s to be kept", f)
			}
		})
	}
}

func TestCELMatcher(t *testing.T) {
	t.Run("prefix", func(t *testing.T) {
		m, err := NewCELMatcher(`field.startsWith("nick")`)
		require.NoError(t, err)

		assert.True(t, m.Match("nickname"))
		assert.False(t, m.Match("name"))
		assert.Equal(t, `field.startsWith("nick")`, m.String())
	})

	t.Run("membership", func(t *testing.T) {
		m, err := NewCELMatcher(`field in ["age", "status"]`)
		require.NoError(t, err)

		d := SkipMatching(m)
		assert.True(t, d.Skips("age"))
		assert.True(t, d.Skips("status"))
		assert.False(t, d.Skips("name"))
	})

	t.Run("non boolean result never matches", func(t *testing.T) {
		m, err := NewCELMatcher(`field + "x"`)
		require.NoError(t, err)
		assert.False(t, m.Match("age"))
	})

	t.Run("invalid expression", func(t *testing.T) {
		_, err := NewCELMatcher(`field ==`)
		assert.ErrorIs(t, err, ErrInvalidSkipExpression)
	})

	t.Run("unknown variable", func(t *testing.T) {
		_, err := NewCELMatcher(`other == "x"`)
		assert.ErrorIs(t, err, ErrInvalidSkipExpression)
	})
}

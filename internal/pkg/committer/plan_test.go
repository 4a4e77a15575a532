package committer

import (
	"context"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/assert"
)

func TestCommitPlan(t *testing.T) {
	plan := NewPlan()
	assert.True(t, plan.IsEmpty())

	plan.Add(nil)
	assert.True(t, plan.IsEmpty(), "nil mutations are ignored")

	plan.Add(spanner.Delete("change_outbox", spanner.Key{"e1"}))
	plan.AddMultiple([]*spanner.Mutation{
		spanner.Delete("change_outbox", spanner.Key{"e2"}),
		nil,
	})

	assert.Equal(t, 2, plan.Count())
	assert.Len(t, plan.Mutations(), 2)
	assert.False(t, plan.IsEmpty())
}

func TestCommitter_EmptyPlanIsNoop(t *testing.T) {
	c := NewCommitter(nil)
	assert.NoError(t, c.Apply(context.Background(), NewPlan()))
}

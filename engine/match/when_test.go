package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Eval(t *testing.T) {
	env := map[string]any{
		"steps": map[string]any{
			"A": map[string]any{"data": map[string]any{"flag": false, "count": float64(2)}},
		},
	}

	t.Run("Should evaluate a leaf condition", func(t *testing.T) {
		cond := CompoundCondition{Condition: Condition{
			Path: "steps.A.data.flag", Operator: OpEquals, Value: false,
		}}
		assert.True(t, Eval(NopLogger{}, cond, env))
	})
	t.Run("Should short-circuit an any compound on first true", func(t *testing.T) {
		cond := CompoundCondition{Any: []CompoundCondition{
			{Condition: Condition{Path: "steps.A.data.flag", Operator: OpEquals, Value: true}},
			{Condition: Condition{Path: "steps.A.data.count", Operator: OpGreaterThan, Value: float64(1)}},
		}}
		assert.True(t, Eval(NopLogger{}, cond, env))
	})
	t.Run("Should require every branch of an all compound", func(t *testing.T) {
		cond := CompoundCondition{All: []CompoundCondition{
			{Condition: Condition{Path: "steps.A.data.flag", Operator: OpEquals, Value: false}},
			{Condition: Condition{Path: "steps.A.data.count", Operator: OpEquals, Value: float64(99)}},
		}}
		assert.False(t, Eval(NopLogger{}, cond, env))
	})
	t.Run("Should nest any inside all", func(t *testing.T) {
		cond := CompoundCondition{All: []CompoundCondition{
			{Condition: Condition{Path: "steps.A.data.flag", Operator: OpEquals, Value: false}},
			{Any: []CompoundCondition{
				{Condition: Condition{Path: "steps.A.data.count", Operator: OpEquals, Value: float64(2)}},
				{Condition: Condition{Path: "steps.A.data.count", Operator: OpEquals, Value: float64(3)}},
			}},
		}}
		assert.True(t, Eval(NopLogger{}, cond, env))
	})
	t.Run("Should degrade a malformed leaf to false instead of panicking", func(t *testing.T) {
		cond := CompoundCondition{Condition: Condition{Path: "steps.A.data.flag"}}
		assert.False(t, Eval(NopLogger{}, cond, env))
	})
}

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ExtractPath(t *testing.T) {
	ctx := map[string]any{
		"steps": map[string]any{
			"A": map[string]any{"data": map[string]any{"value": "hello", "count": float64(3)}},
		},
		"items": []any{"x", "y", "z"},
	}
	t.Run("Should resolve a nested dotted path", func(t *testing.T) {
		v, ok := ExtractPath(ctx, "steps.A.data.value")
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	})
	t.Run("Should resolve an indexed path", func(t *testing.T) {
		v, ok := ExtractPath(ctx, "items.1")
		assert.True(t, ok)
		assert.Equal(t, "y", v)
	})
	t.Run("Should report missing paths", func(t *testing.T) {
		_, ok := ExtractPath(ctx, "steps.B.data.value")
		assert.False(t, ok)
	})
	t.Run("Should reject empty path", func(t *testing.T) {
		_, ok := ExtractPath(ctx, "")
		assert.False(t, ok)
	})
}

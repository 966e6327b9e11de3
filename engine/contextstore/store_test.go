package contextstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaveflow/weaveflow/engine/core"
)

func Test_Store(t *testing.T) {
	uid := core.MustNewID()

	t.Run("Should seed workflow_uid, payload and empty steps", func(t *testing.T) {
		s := New(uid, map[string]any{"order_id": "o-1"})
		snap, err := s.GetAll()
		require.NoError(t, err)
		assert.Equal(t, uid.String(), snap[KeyWorkflowUID])
		assert.Equal(t, map[string]any{"order_id": "o-1"}, snap[NamespacePayload])
		assert.Equal(t, map[string]any{}, snap[NamespaceSteps])
	})

	t.Run("Should reject direct writes to the steps namespace", func(t *testing.T) {
		s := New(uid, nil)
		err := s.Set(NamespaceSteps, map[string]any{"hack": true})
		assert.Error(t, err)
	})

	t.Run("Should record step results under steps.<key>", func(t *testing.T) {
		s := New(uid, nil)
		s.SetStep("A", map[string]any{"status": "ok", "data": map[string]any{"value": "hello"}})
		v, ok := s.Get("steps.A.data.value")
		require.True(t, ok)
		assert.Equal(t, "hello", v)
	})

	t.Run("Should support a later step registering under a custom key", func(t *testing.T) {
		s := New(uid, nil)
		s.SetStep("custom_key", map[string]any{"status": "ok"})
		_, ok := s.Get("steps.custom_key.status")
		assert.True(t, ok)
	})

	t.Run("GetAll should return a deep snapshot independent of the live store", func(t *testing.T) {
		s := New(uid, nil)
		s.SetStep("A", map[string]any{"data": map[string]any{"value": "hello"}})
		snap, err := s.GetAll()
		require.NoError(t, err)
		steps := snap[NamespaceSteps].(map[string]any)
		a := steps["A"].(map[string]any)
		data := a["data"].(map[string]any)
		data["value"] = "mutated"

		v, ok := s.Get("steps.A.data.value")
		require.True(t, ok)
		assert.Equal(t, "hello", v, "mutating the snapshot must not affect the live store")
	})

	t.Run("Should expose env under the env namespace", func(t *testing.T) {
		s := New(uid, nil)
		s.SetEnv(map[string]string{"REGION": "us-east-1"})
		v, ok := s.Get("env.REGION")
		require.True(t, ok)
		assert.Equal(t, "us-east-1", v)
	})

	t.Run("Should bind and retrieve non-serializable handles outside snapshots", func(t *testing.T) {
		s := New(uid, nil)
		handle := make(chan int)
		s.Bind("db_conn", handle)
		got, ok := s.Bound("db_conn")
		require.True(t, ok)
		assert.Equal(t, handle, got)

		snap, err := s.GetAll()
		require.NoError(t, err)
		_, present := snap["db_conn"]
		assert.False(t, present, "bound handles must never leak into the snapshot")
	})

	t.Run("Should report false for a missing path", func(t *testing.T) {
		s := New(uid, nil)
		_, ok := s.Get("steps.missing.data")
		assert.False(t, ok)
	})
}

package obs

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Metrics_New(t *testing.T) {
	t.Run("Should record a dispatch and expose it on the Prometheus handler", func(t *testing.T) {
		m, err := New()
		require.NoError(t, err)

		m.RecordDispatch(context.Background(), "worker", "run", "ok", 0.01)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/metrics", nil)
		m.Handler().ServeHTTP(rec, req)

		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, rec.Body.String(), "weaveflow_step_dispatch_total")
	})
}

func Test_Metrics_ApprovalGauge(t *testing.T) {
	t.Run("Should track opened and resolved approvals without panicking", func(t *testing.T) {
		m, err := New()
		require.NoError(t, err)
		m.ApprovalOpened()
		m.ApprovalOpened()
		m.ApprovalResolved()
		assert.Equal(t, int64(1), m.pendingApproval.Load())
	})
}

func Test_Metrics_Disabled(t *testing.T) {
	t.Run("Should be safe to call on a nil Metrics and a NewDisabled Metrics", func(t *testing.T) {
		var nilMetrics *Metrics
		assert.NotPanics(t, func() {
			nilMetrics.RecordDispatch(context.Background(), "a", "b", "ok", 0)
			nilMetrics.ApprovalOpened()
			nilMetrics.ApprovalResolved()
		})

		disabled := NewDisabled()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/metrics", nil)
		disabled.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 503, rec.Code)
	})
}

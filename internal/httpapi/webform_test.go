package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HandleWebformGet(t *testing.T) {
	t.Run("Should return the form schema for a pending ticket", func(t *testing.T) {
		srv, approvals := newTestServer(t)
		formURL, err := approvals.Create("wf-1", "approve", map[string]any{"type": "object"}, []string{"ops"}, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, "/webform/wf-1", formURL)

		req := httptest.NewRequest(http.MethodGet, formURL, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, rec.Body.String(), `"step_id":"approve"`)
	})

	t.Run("Should 404 for an unknown workflow_uid", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/webform/missing", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("Should 409 for an already-accepted ticket", func(t *testing.T) {
		srv, approvals := newTestServer(t)
		_, err := approvals.Create("wf-2", "approve", nil, nil, time.Hour)
		require.NoError(t, err)
		accepted, err := approvals.Submit("wf-2", map[string]any{"ok": true})
		require.NoError(t, err)
		require.True(t, accepted)

		req := httptest.NewRequest(http.MethodGet, "/webform/wf-2", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 409, rec.Code)
	})

	t.Run("Should 410 for an expired ticket", func(t *testing.T) {
		srv, approvals := newTestServer(t)
		_, err := approvals.Create("wf-3", "approve", nil, nil, -time.Minute)
		require.NoError(t, err)
		_, err = approvals.ExpireDue(time.Now())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/webform/wf-3", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 410, rec.Code)
	})
}

func Test_HandleWebformPost(t *testing.T) {
	t.Run("Should accept a submission against a pending ticket", func(t *testing.T) {
		srv, approvals := newTestServer(t)
		_, err := approvals.Create("wf-4", "approve", nil, nil, time.Hour)
		require.NoError(t, err)

		body, err := json.Marshal(map[string]any{"approved": true})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/webform/wf-4", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		assert.Equal(t, 200, rec.Code)

		ticket, ok, err := approvals.Status("wf-4")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "accepted", string(ticket.Status))
	})

	t.Run("Should 404 for an unknown workflow_uid", func(t *testing.T) {
		srv, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/webform/missing", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 404, rec.Code)
	})

	t.Run("Should 409 when submitting against an already-accepted ticket", func(t *testing.T) {
		srv, approvals := newTestServer(t)
		_, err := approvals.Create("wf-5", "approve", nil, nil, time.Hour)
		require.NoError(t, err)
		_, err = approvals.Submit("wf-5", map[string]any{"ok": true})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/webform/wf-5", bytes.NewReader([]byte(`{"ok":true}`)))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, 409, rec.Code)
	})
}

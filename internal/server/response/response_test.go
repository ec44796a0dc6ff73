package response

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccessAndFail(t *testing.T) {
	ok := Success(map[string]string{"message": "success"})
	assert.NotNil(t, ok.Data)
	assert.Nil(t, ok.Error)

	bad := Fail("TEST_ERROR", "Test error message", "Additional details")
	assert.Nil(t, bad.Data)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "TEST_ERROR", bad.Error.Code)
	assert.Equal(t, "Test error message", bad.Error.Message)
	assert.Equal(t, "Additional details", bad.Error.Details)
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"test": "data"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decode(t, w)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"test": "data"}, resp.Data)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad", "") }, http.StatusBadRequest, "BAD_REQUEST"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "missing", "") }, http.StatusNotFound, "NOT_FOUND"},
		{"method", func(w http.ResponseWriter) { MethodNotAllowed(w, http.MethodDelete) }, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED"},
		{"conflict", func(w http.ResponseWriter) { Conflict(w, "busy", "") }, http.StatusConflict, "CONFLICT"},
		{"bad gateway", func(w http.ResponseWriter) { BadGateway(w, "down") }, http.StatusBadGateway, "BAD_GATEWAY"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, fmt.Errorf("boom")) }, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unavailable", func(w http.ResponseWriter) { ServiceUnavailable(w, "starting") }, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.NewNotFoundError("entity", "12"), http.StatusNotFound},
		{"validation", errors.NewValidationError("limit", -1, "must be positive"), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("query: %w", errors.NewValidationError("category", "x", "unknown")), http.StatusBadRequest},
		{"config", errors.NewConfigError("queue", "not queued", nil), http.StatusConflict},
		{"proxy down", errors.NewProxyError("http://game", 0, "refused"), http.StatusBadGateway},
		{"proxy client", errors.NewProxyError("http://game", 404, "gone"), http.StatusBadRequest},
		{"unknown", fmt.Errorf("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

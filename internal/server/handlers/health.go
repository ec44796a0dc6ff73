package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/forgetap/internal/server/response"
)

// HandleHealth handles GET /health (liveness).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "forgetap-api",
		"version": "v1",
	})
}

// HandleReady handles GET /api/v1/ready. The service is ready once the
// game startup payload has been seen.
func (h *Handlers) HandleReady(w http.ResponseWriter, _ *http.Request) {
	if h.tap.City().UpdatedAt().IsZero() {
		response.ServiceUnavailable(w, "No game session observed yet")
		return
	}

	response.OK(w, map[string]any{
		"status":            "ready",
		"uptime_seconds":    int64(time.Since(h.startTime).Seconds()),
		"cache":             h.cache.GetStats(),
		"websocket_clients": h.wsHub.ClientCount(),
		"sse_clients":       h.sseBroadcaster.ClientCount(),
	})
}

package handlers

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/agentstation/forgetap/internal/server/cache"
	"github.com/agentstation/forgetap/internal/server/events"
	"github.com/agentstation/forgetap/internal/server/response"
	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// State is the combined view returned by /api/v1/state.
type State struct {
	City        city.Summary      `json:"city"`
	Interceptor InterceptorStatus `json:"interceptor"`
}

// InterceptorStatus reports the interceptor switch and counters.
type InterceptorStatus struct {
	Enabled  bool              `json:"enabled"`
	Queued   bool              `json:"queued"`
	Pending  int               `json:"pending"`
	Stats    interceptor.Stats `json:"stats"`
	Handlers map[string]int    `json:"handlers"`
}

func (h *Handlers) interceptorStatus() InterceptorStatus {
	ic := h.tap.Interceptor()
	status := InterceptorStatus{
		Enabled:  ic.Enabled(),
		Stats:    ic.Stats(),
		Handlers: ic.HandlerCount(),
	}
	if q := ic.Queue(); q != nil {
		status.Queued = true
		status.Pending += q.Len()
	}
	if q := ic.WebSocketQueue(); q != nil {
		status.Pending += q.Len()
	}
	return status
}

// HandleState handles GET /api/v1/state.
func (h *Handlers) HandleState(w http.ResponseWriter, _ *http.Request) {
	summary := h.cache.GetOrCompute(cache.KeyState, func() any {
		return h.tap.City().Summary()
	}).(city.Summary)

	response.OK(w, State{
		City:        summary,
		Interceptor: h.interceptorStatus(),
	})
}

// HandleHistory handles GET /api/v1/history.
func (h *Handlers) HandleHistory(w http.ResponseWriter, _ *http.Request) {
	history := h.tap.Interceptor().History()
	response.OK(w, map[string]any{
		"history": history,
		"count":   len(history),
	})
}

// HandleMetaIDs handles GET /api/v1/meta-ids.
func (h *Handlers) HandleMetaIDs(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, h.tap.Interceptor().MetaIDs())
}

// ToggleRequest is the body of POST /api/v1/interceptor.
type ToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleInterceptor handles GET and POST /api/v1/interceptor.
func (h *Handlers) HandleInterceptor(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		response.OK(w, h.interceptorStatus())
	case http.MethodPost:
		var req ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid JSON request body", err.Error())
			return
		}
		if req.Enabled == nil {
			response.ErrorFromType(w, errors.NewValidationError("enabled", nil, "is required"))
			return
		}
		h.tap.Interceptor().SetEnabled(*req.Enabled)
		h.broker.Publish(events.InterceptorToggled, map[string]any{
			"enabled": *req.Enabled,
		})
		h.logger.Info().Bool("enabled", *req.Enabled).Msg("Interceptor toggled")
		response.OK(w, h.interceptorStatus())
	default:
		response.MethodNotAllowed(w, r.Method)
	}
}

// HandleDrain handles POST /api/v1/interceptor/drain.
func (h *Handlers) HandleDrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.MethodNotAllowed(w, r.Method)
		return
	}
	ic := h.tap.Interceptor()
	if ic.Queue() == nil && ic.WebSocketQueue() == nil {
		response.ErrorFromType(w, errors.NewConfigError("interceptor", "no queue installed", nil))
		return
	}
	response.OK(w, map[string]any{"drained": ic.Drain()})
}

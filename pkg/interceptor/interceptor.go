// Package interceptor classifies observed game traffic and fans it out to
// registered handlers.
//
// An Interceptor receives three kinds of events from the transport layer:
// an outgoing send (HandleSend), a completed HTTP exchange (HandleLoad) and
// an inbound WebSocket frame (HandleWebSocketMessage). Completed exchanges go
// through raw handlers, then metadata handlers when the URL carries a
// metadata?id= marker, then per-entry response handlers when the URL is a
// game/json batch endpoint. Batch entries are dispatched in bootstrap order
// and looked up through four tiers of (service, method) keys.
//
// Handler failures never escape: returned errors and panics are logged and
// dispatch carries on with the next handler. Dispatch of one event holds a
// lock, so handlers for concurrent exchanges never interleave. Handlers must
// not call back into Process, ProcessWebSocketMessage or Drain.
package interceptor

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/logging"
	"github.com/agentstation/forgetap/pkg/registry"
)

// Config holds the URL markers and limits used for classification.
type Config struct {
	// ExcludedPaths are URL substrings whose exchanges are ignored entirely.
	ExcludedPaths []string

	// GameDataMarker identifies batch endpoints.
	GameDataMarker string

	// MetaMarker precedes "<type>-<id>" in metadata URLs.
	MetaMarker string

	// KeepAliveMessage is a WebSocket frame that is dropped unparsed.
	KeepAliveMessage string

	// HistoryLimit caps the history log. Zero keeps every entry.
	HistoryLimit int
}

// DefaultConfig returns the markers used by the live game.
func DefaultConfig() Config {
	return Config{
		ExcludedPaths:    []string{constants.DefaultExcludedPath},
		GameDataMarker:   constants.GameDataMarker,
		MetaMarker:       constants.MetaMarker,
		KeepAliveMessage: constants.KeepAliveMessage,
	}
}

// Interceptor is the composed interception service: handler registries,
// history, metadata IDs, the enable switch and the optional pending queues.
type Interceptor struct {
	cfg    Config
	logger *zerolog.Logger

	enabled atomic.Bool

	responses *registry.Registry[ResponseHandler]
	requests  *registry.Registry[RequestHandler]
	ws        *registry.Registry[WsHandler]
	meta      *registry.Named[MetaHandler]
	raw       *registry.List[RawHandler]
	wsRaw     *registry.List[WsRawHandler]

	// dispatchMu serializes dispatch of whole events.
	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	metaIDs map[string]string
	history []string
	queue   *Queue[*Exchange]
	wsQueue *Queue[[]byte]

	stats counters
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithConfig replaces the classification config.
func WithConfig(cfg Config) Option {
	return func(ic *Interceptor) {
		ic.cfg = cfg
	}
}

// WithLogger sets the logger used for handler failures and diagnostics.
func WithLogger(logger *zerolog.Logger) Option {
	return func(ic *Interceptor) {
		if logger != nil {
			l := logger.With().Str("component", "interceptor").Logger()
			ic.logger = &l
		}
	}
}

// WithExcludedPaths replaces the excluded path denylist.
func WithExcludedPaths(paths ...string) Option {
	return func(ic *Interceptor) {
		ic.cfg.ExcludedPaths = paths
	}
}

// WithHistoryLimit caps the history log.
func WithHistoryLimit(n int) Option {
	return func(ic *Interceptor) {
		ic.cfg.HistoryLimit = n
	}
}

// WithQueue installs a pending queue for completed exchanges.
func WithQueue(q *Queue[*Exchange]) Option {
	return func(ic *Interceptor) {
		ic.queue = q
	}
}

// New creates an enabled Interceptor.
func New(opts ...Option) *Interceptor {
	logger := logging.Default().With().Str("component", "interceptor").Logger()
	ic := &Interceptor{
		cfg:       DefaultConfig(),
		logger:    &logger,
		responses: registry.New[ResponseHandler](),
		requests:  registry.New[RequestHandler](),
		ws:        registry.New[WsHandler](),
		meta:      registry.NewNamed[MetaHandler](),
		raw:       registry.NewList[RawHandler](),
		wsRaw:     registry.NewList[WsRawHandler](),
		metaIDs:   make(map[string]string),
	}
	ic.enabled.Store(true)

	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// Config returns the classification config.
func (ic *Interceptor) Config() Config {
	return ic.cfg
}

// SetEnabled switches interception on or off. While off, every Handle
// method returns without side effects.
func (ic *Interceptor) SetEnabled(enabled bool) {
	ic.enabled.Store(enabled)
	ic.logger.Debug().Bool("enabled", enabled).Msg("Interception toggled")
}

// Enabled reports whether interception is on.
func (ic *Interceptor) Enabled() bool {
	return ic.enabled.Load()
}

// SetQueue installs (or with nil, removes) the pending exchange queue.
// Removing a queue does not drain it.
func (ic *Interceptor) SetQueue(q *Queue[*Exchange]) {
	ic.stateMu.Lock()
	defer ic.stateMu.Unlock()
	ic.queue = q
}

// Queue returns the pending exchange queue, or nil.
func (ic *Interceptor) Queue() *Queue[*Exchange] {
	ic.stateMu.RLock()
	defer ic.stateMu.RUnlock()
	return ic.queue
}

// SetWebSocketQueue installs (or with nil, removes) the pending WebSocket
// message queue.
func (ic *Interceptor) SetWebSocketQueue(q *Queue[[]byte]) {
	ic.stateMu.Lock()
	defer ic.stateMu.Unlock()
	ic.wsQueue = q
}

// WebSocketQueue returns the pending WebSocket queue, or nil.
func (ic *Interceptor) WebSocketQueue() *Queue[[]byte] {
	ic.stateMu.RLock()
	defer ic.stateMu.RUnlock()
	return ic.wsQueue
}

// Drain processes everything buffered in the installed queues, exchanges
// first, each queue in arrival order. It returns the number of items
// processed.
func (ic *Interceptor) Drain() int {
	n := 0
	if q := ic.Queue(); q != nil {
		for _, ex := range q.Drain() {
			ic.Process(ex)
			n++
		}
	}
	if q := ic.WebSocketQueue(); q != nil {
		for _, msg := range q.Drain() {
			ic.ProcessWebSocketMessage(msg)
			n++
		}
	}
	return n
}

// MetaIDs returns a copy of the metadata type to ID map.
func (ic *Interceptor) MetaIDs() map[string]string {
	ic.stateMu.RLock()
	defer ic.stateMu.RUnlock()
	out := make(map[string]string, len(ic.metaIDs))
	for k, v := range ic.metaIDs {
		out[k] = v
	}
	return out
}

// MetaID returns the most recent ID seen for a metadata type.
func (ic *Interceptor) MetaID(metaType string) (string, bool) {
	ic.stateMu.RLock()
	defer ic.stateMu.RUnlock()
	id, ok := ic.metaIDs[metaType]
	return id, ok
}

// History returns a copy of the "<class>.<method>" log of dispatched
// response entries.
func (ic *Interceptor) History() []string {
	ic.stateMu.RLock()
	defer ic.stateMu.RUnlock()
	return append([]string(nil), ic.history...)
}

func (ic *Interceptor) setMetaID(metaType, id string) {
	ic.stateMu.Lock()
	defer ic.stateMu.Unlock()
	ic.metaIDs[metaType] = id
}

func (ic *Interceptor) appendHistory(name string) {
	ic.stateMu.Lock()
	defer ic.stateMu.Unlock()
	ic.history = append(ic.history, name)
	if limit := ic.cfg.HistoryLimit; limit > 0 && len(ic.history) > limit {
		ic.history = append(ic.history[:0:0], ic.history[len(ic.history)-limit:]...)
	}
}

func (ic *Interceptor) excluded(url string) bool {
	for _, p := range ic.cfg.ExcludedPaths {
		if p != "" && strings.Contains(url, p) {
			return true
		}
	}
	return false
}

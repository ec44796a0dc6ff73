// Package forgetap observes the traffic of a Forge of Empires game client
// and keeps a live view of the player's city.
//
// A Client composes three parts:
//   - an interceptor that classifies HTTP exchanges and WebSocket frames
//     and fans them out to handlers keyed by service and method
//   - an HTTP transport and WebSocket wrapper that feed it
//   - a city store that folds game events into buildings, catalog and metadata
//
// Example usage:
//
//	tap, err := forgetap.New(forgetap.WithMetadataCache("defs.json"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tap.AutoDrainOff()
//
//	tap.OnCityMapChanged(func(c city.Change) {
//	    log.Printf("%d buildings from %s", c.Count, c.Source)
//	})
//
//	client := &http.Client{}
//	tap.Install(client)
//
//	tap.AddHandler("CityMapService", "getEntities", func(e batch.Entry, _ []batch.Entry) error {
//	    return nil
//	})
package forgetap

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
	"github.com/agentstation/forgetap/pkg/logging"
	"github.com/agentstation/forgetap/pkg/transport"
)

// Compile-time interface check to ensure proper implementation.
var _ Client = (*client)(nil)

// Client is the composed capture service.
type Client interface {
	// Interceptor returns the underlying dispatcher.
	Interceptor() *interceptor.Interceptor

	// City returns the live city view.
	City() *city.Store

	// Transport wraps base so its traffic is observed. Wrapping is idempotent.
	Transport(base http.RoundTripper) http.RoundTripper

	// Install wraps client's transport. It reports false when already wrapped.
	Install(client *http.Client) bool

	// Sockets returns the WebSocket wrapper feeding the interceptor.
	Sockets() *transport.Sockets

	// AddHandler subscribes to a service and method. "" means all.
	AddHandler(service, method string, fn interceptor.ResponseHandler)

	// AddWsHandler subscribes to WebSocket pushes. "" means all.
	AddWsHandler(service, method string, fn interceptor.WsHandler)

	// Enable switches interception on.
	Enable()

	// Disable switches interception off; traffic passes through untouched.
	Disable()

	// Stats returns dispatch counters.
	Stats() interceptor.Stats

	Hooks
	AutoDrainer
	Persistence
}

type client struct {
	mu     sync.Mutex
	config *config
	logger *zerolog.Logger

	ic      *interceptor.Interceptor
	store   *city.Store
	sockets *transport.Sockets

	hooks *hooks

	drainTicker *time.Ticker
	stopCh      chan struct{}
}

// New creates a Client with the given options.
func New(opts ...Option) (Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, errors.NewConfigError("forgetap", "applying options", err)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.Default()
	}

	icOpts := []interceptor.Option{
		interceptor.WithLogger(logger),
		interceptor.WithConfig(cfg.interceptor),
	}
	if cfg.queued {
		icOpts = append(icOpts, interceptor.WithQueue(interceptor.NewQueue[*interceptor.Exchange]()))
	}
	ic := interceptor.New(icOpts...)
	if cfg.queued {
		ic.SetWebSocketQueue(interceptor.NewQueue[[]byte]())
	}
	ic.SetEnabled(!cfg.disabled)

	storeOpts := []city.Option{city.WithLogger(logger)}
	if cfg.metadataCache != "" {
		storeOpts = append(storeOpts, city.WithMetadataCache(cfg.metadataCache))
	}
	store := city.NewStore(storeOpts...)
	if cfg.metadataCache != "" {
		if err := store.LoadMetadata(cfg.metadataCache); err != nil {
			logger.Warn().Err(err).Str("path", cfg.metadataCache).Msg("Ignoring unreadable metadata cache")
		}
	}
	store.Register(ic)

	c := &client{
		config:  cfg,
		logger:  logger,
		ic:      ic,
		store:   store,
		sockets: transport.NewSockets(ic),
		hooks:   newHooks(),
		stopCh:  make(chan struct{}),
	}
	store.OnChange(c.hooks.trigger)

	if cfg.autoDrainInterval > 0 {
		if err := c.AutoDrainOn(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *client) Interceptor() *interceptor.Interceptor { return c.ic }

func (c *client) City() *city.Store { return c.store }

func (c *client) Sockets() *transport.Sockets { return c.sockets }

func (c *client) Transport(base http.RoundTripper) http.RoundTripper {
	return transport.Wrap(base, c.ic, c.transportOptions()...)
}

func (c *client) Install(hc *http.Client) bool {
	return transport.Install(hc, c.ic, c.transportOptions()...)
}

func (c *client) transportOptions() []transport.Option {
	opts := []transport.Option{transport.WithLogger(c.logger)}
	if c.config.maxInspectBytes > 0 {
		opts = append(opts, transport.WithMaxInspectBytes(c.config.maxInspectBytes))
	}
	return opts
}

func (c *client) AddHandler(service, method string, fn interceptor.ResponseHandler) {
	c.ic.AddHandler(service, method, fn)
}

func (c *client) AddWsHandler(service, method string, fn interceptor.WsHandler) {
	c.ic.AddWsHandler(service, method, fn)
}

func (c *client) Enable() { c.ic.SetEnabled(true) }

func (c *client) Disable() { c.ic.SetEnabled(false) }

func (c *client) Stats() interceptor.Stats { return c.ic.Stats() }

// Entries is a convenience for handlers that only want the entry.
func Entries(fn func(batch.Entry) error) interceptor.ResponseHandler {
	return func(entry batch.Entry, _ []batch.Entry) error {
		return fn(entry)
	}
}

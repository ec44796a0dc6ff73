// Package server provides the forgetap event API: a small HTTP server that
// exposes the live city view and streams interception events to WebSocket
// and SSE clients.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/server/cache"
	"github.com/agentstation/forgetap/internal/server/events"
	"github.com/agentstation/forgetap/internal/server/events/adapters"
	"github.com/agentstation/forgetap/internal/server/handlers"
	"github.com/agentstation/forgetap/internal/server/sse"
	ws "github.com/agentstation/forgetap/internal/server/websocket"
	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/constants"
)

// Tap is the capture service the server exposes.
type Tap interface {
	forgetap.Hooks
	handlers.Tap
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	tap            Tap
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	config         Config
	ctx            context.Context
	cancel         context.CancelFunc
	running        sync.WaitGroup
	startTime      time.Time
}

// New creates a new server instance and connects it to tap.
func New(tap Tap, cfg Config, logger *zerolog.Logger) (*Server, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}

	broker := events.NewBroker(logger)
	wsHub := ws.NewHub(logger)
	sseBroadcaster := sse.NewBroadcaster(logger)

	broker.Subscribe(adapters.NewWebSocketSubscriber(wsHub))
	broker.Subscribe(adapters.NewSSESubscriber(sseBroadcaster))

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		tap:            tap,
		cache:          cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	s.connectHooks()
	logger.Debug().Int("subscribers", broker.SubscriberCount()).Msg("Server instance created")
	return s, nil
}

// connectHooks publishes city changes and dispatched traffic to the broker.
// Callbacks run under the interceptor's dispatch lock, so they only publish.
func (s *Server) connectHooks() {
	s.tap.OnChange(func(c city.Change) {
		s.cache.Clear()
		s.broker.Publish(events.CityChanged, c)
	})

	metadata := func(c city.Change) {
		s.broker.Publish(events.MetadataLoaded, map[string]any{
			"kind":   c.Kind,
			"source": c.Source,
			"count":  c.Count,
		})
	}
	s.tap.OnCatalogLoaded(metadata)
	s.tap.OnMetadataCaptured(metadata)

	ic := s.tap.Interceptor()
	ic.AddHandler("", "", func(entry batch.Entry, correlated []batch.Entry) error {
		s.broker.Publish(events.EntryDispatched, map[string]any{
			"service":    entry.Class(),
			"method":     entry.Method(),
			"request_id": entry.RequestID(),
			"correlated": len(correlated),
		})
		return nil
	})
	ic.AddWsHandler("", "", func(entry batch.Entry) error {
		s.broker.Publish(events.PushReceived, map[string]any{
			"service": entry.Class(),
			"method":  entry.Method(),
		})
		return nil
	})

	s.logger.Debug().Msg("Capture hooks connected to event broker")
}

// Start starts background services (broker, WebSocket hub, SSE broadcaster).
func (s *Server) Start() {
	for _, run := range []func(context.Context){s.broker.Run, s.wsHub.Run, s.sseBroadcaster.Run} {
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			run(s.ctx)
		}()
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server for the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Shutdown stops background services and waits for them until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down server background services")
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Background services shut down successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Background services shutdown timed out")
		return ctx.Err()
	}
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// Broker returns the event broker for publishing events.
func (s *Server) Broker() *events.Broker {
	return s.broker
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}

// Package handlers provides HTTP request handlers for the forgetap API.
package handlers

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/internal/server/cache"
	"github.com/agentstation/forgetap/internal/server/events"
	"github.com/agentstation/forgetap/internal/server/sse"
	ws "github.com/agentstation/forgetap/internal/server/websocket"
	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// Tap is the capture service the handlers read from.
type Tap interface {
	Interceptor() *interceptor.Interceptor
	City() *city.Store
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	tap            Tap
	cache          *cache.Cache
	broker         *events.Broker
	wsHub          *ws.Hub
	sseBroadcaster *sse.Broadcaster
	upgrader       websocket.Upgrader
	logger         *zerolog.Logger
	startTime      time.Time
}

// New creates a new Handlers instance.
func New(
	tap Tap,
	cache *cache.Cache,
	broker *events.Broker,
	wsHub *ws.Hub,
	sseBroadcaster *sse.Broadcaster,
	upgrader websocket.Upgrader,
	logger *zerolog.Logger,
) *Handlers {
	return &Handlers{
		tap:            tap,
		cache:          cache,
		broker:         broker,
		wsHub:          wsHub,
		sseBroadcaster: sseBroadcaster,
		upgrader:       upgrader,
		logger:         logger,
		startTime:      time.Now(),
	}
}

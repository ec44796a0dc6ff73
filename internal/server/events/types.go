// Package events fans interception and city-view events out to the
// real-time transports.
//
// The Broker connects interceptor handlers and city store hooks to every
// registered Subscriber (WebSocket, SSE) through one pipeline.
package events

import "github.com/agentstation/utc"

// EventType names an event.
type EventType string

// Event types.
const (
	// City view events (from store hooks).
	CityChanged EventType = "city.changed"

	// Traffic events (from interceptor handlers).
	EntryDispatched EventType = "entry.dispatched"
	PushReceived    EventType = "push.received"
	MetadataLoaded  EventType = "metadata.loaded"

	// Control events.
	InterceptorToggled EventType = "interceptor.toggled"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event is a typed, timestamped payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp utc.Time  `json:"timestamp"`
	Data      any       `json:"data"`
}

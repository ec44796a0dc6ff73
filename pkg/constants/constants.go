// Package constants provides shared constants used throughout the forgetap codebase.
// This includes the game's wire markers, timeouts, limits and file permissions
// that must agree between the interceptor, the proxy and the CLI.
package constants

import "time"

// Wire markers recognized in intercepted traffic
const (
	// GameDataMarker identifies batched game API calls by URL substring
	GameDataMarker = "game/json"

	// MetaMarker identifies metadata document fetches by URL substring
	MetaMarker = "metadata?id="

	// DefaultExcludedPath is skipped entirely on load
	DefaultExcludedPath = "/assets"

	// KeepAliveMessage is the WebSocket keepalive frame ignored by the dispatcher
	KeepAliveMessage = "PONG"

	// ClassField carries the class discriminator of WebSocket push messages
	ClassField = "__class__"

	// ServerResponseClass marks a single-object WebSocket push that is dispatched
	ServerResponseClass = "ServerResponse"

	// Wildcard is the service or method part that matches every value
	Wildcard = "all"
)

// Batch entry field names
const (
	FieldRequestClass  = "requestClass"
	FieldRequestMethod = "requestMethod"
	FieldRequestID     = "requestId"
	FieldResponseData  = "responseData"
)

// Bootstrap services dispatched ahead of the rest of a batch
const (
	// MetadataService carries the metadata index and goes first
	MetadataService = "StaticDataService"
	MetadataMethod  = "getMetadata"

	// StartupService carries the initial city state and goes second
	StartupService = "StartupService"
	StartupMethod  = "getData"
)

// Timeout constants
const (
	// DefaultTimeout is the standard timeout for general operations
	DefaultTimeout = 10 * time.Second

	// ShutdownTimeout bounds graceful shutdown of the proxy and API servers
	ShutdownTimeout = 10 * time.Second

	// DialTimeout is the timeout for establishing upstream connections
	DialTimeout = 10 * time.Second

	// WebSocketHandshakeTimeout bounds the upstream WebSocket handshake
	WebSocketHandshakeTimeout = 15 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxInspectBytes is the largest body buffered for inspection (32 MB)
	MaxInspectBytes = 32 << 20

	// ChannelBufferSize is the default buffer size for channels
	ChannelBufferSize = 256

	// WebSocketReadLimit is the largest frame accepted from a browser client
	WebSocketReadLimit = 16 << 20
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached API snapshots
	CacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = time.Minute
)

// Default values
const (
	// DefaultListenAddr is where the intercepting proxy listens
	DefaultListenAddr = "127.0.0.1:8765"

	// DefaultAPIAddr is where the event API listens
	DefaultAPIAddr = "127.0.0.1:8766"
)

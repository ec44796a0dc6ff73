package server

import (
	"time"

	"github.com/agentstation/forgetap/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// Listen address, host:port
	Addr string

	// API settings
	PathPrefix string

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Snapshot cache lifetime; the cache is also cleared on every city change
	CacheTTL time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:8081",
		PathPrefix:   "/api/v1",
		CacheTTL:     constants.CacheTTL,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // streaming endpoints hold the connection open
		IdleTimeout:  120 * time.Second,
	}
}

package forgetap

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// Option is a function that configures a Client.
type Option func(*config) error

type config struct {
	logger            *zerolog.Logger
	interceptor       interceptor.Config
	disabled          bool
	queued            bool
	autoDrainInterval time.Duration
	maxInspectBytes   int64
	metadataCache     string
}

func defaultConfig() *config {
	return &config{interceptor: interceptor.DefaultConfig()}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithInterceptorConfig replaces the classification config.
func WithInterceptorConfig(cfg interceptor.Config) Option {
	return func(c *config) error {
		c.interceptor = cfg
		return nil
	}
}

// WithExcludedPaths replaces the paths whose exchanges are skipped.
func WithExcludedPaths(paths ...string) Option {
	return func(c *config) error {
		c.interceptor.ExcludedPaths = paths
		return nil
	}
}

// WithHistoryLimit caps the dispatched entry history. Zero is unbounded.
func WithHistoryLimit(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.NewValidationError("historyLimit", n, "must not be negative")
		}
		c.interceptor.HistoryLimit = n
		return nil
	}
}

// WithDisabled starts the client with interception switched off.
func WithDisabled() Option {
	return func(c *config) error {
		c.disabled = true
		return nil
	}
}

// WithQueue buffers exchanges and WebSocket frames until Drain is called.
func WithQueue() Option {
	return func(c *config) error {
		c.queued = true
		return nil
	}
}

// WithAutoDrain buffers traffic and drains it every interval.
func WithAutoDrain(interval time.Duration) Option {
	return func(c *config) error {
		if interval <= 0 {
			return errors.NewValidationError("autoDrainInterval", interval, "must be positive")
		}
		c.queued = true
		c.autoDrainInterval = interval
		return nil
	}
}

// WithMaxInspectBytes sets the largest body the transport buffers.
func WithMaxInspectBytes(n int64) Option {
	return func(c *config) error {
		c.maxInspectBytes = n
		return nil
	}
}

// WithMetadataCache loads building metadata from path and saves it back on
// every capture.
func WithMetadataCache(path string) Option {
	return func(c *config) error {
		c.metadataCache = path
		return nil
	}
}

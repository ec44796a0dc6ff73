package forgetap

import (
	"time"

	"github.com/agentstation/forgetap/pkg/errors"
)

// Compile-time interface check to ensure proper implementation.
var _ AutoDrainer = (*client)(nil)

// AutoDrainer controls draining of queued traffic.
type AutoDrainer interface {
	// Drain processes queued exchanges and frames in arrival order and
	// returns how many were processed.
	Drain() int

	// AutoDrainOn starts draining on the configured interval.
	AutoDrainOn() error

	// AutoDrainOff stops automatic draining.
	AutoDrainOff() error
}

func (c *client) Drain() int {
	return c.ic.Drain()
}

// AutoDrainOn starts a background drain loop. Calling it again restarts
// the loop.
func (c *client) AutoDrainOn() error {
	if c.config.autoDrainInterval <= 0 {
		return &errors.ValidationError{
			Field:   "autoDrainInterval",
			Value:   c.config.autoDrainInterval,
			Message: "drain interval must be positive",
		}
	}
	if c.ic.Queue() == nil {
		return errors.NewConfigError("forgetap", "auto drain needs a queue", nil)
	}

	if err := c.AutoDrainOff(); err != nil {
		return err
	}

	c.mu.Lock()
	c.stopCh = make(chan struct{})
	c.drainTicker = time.NewTicker(c.config.autoDrainInterval)
	ticker, stop := c.drainTicker, c.stopCh
	c.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				if n := c.ic.Drain(); n > 0 {
					c.logger.Debug().Int("processed", n).Msg("Drained queued traffic")
				}
			case <-stop:
				return
			}
		}
	}()
	return nil
}

// AutoDrainOff stops the drain loop. Queued traffic stays queued.
func (c *client) AutoDrainOff() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.drainTicker != nil {
		c.drainTicker.Stop()
		c.drainTicker = nil
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
	return nil
}

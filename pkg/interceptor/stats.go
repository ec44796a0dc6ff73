package interceptor

import "sync/atomic"

type counters struct {
	sends     atomic.Int64
	exchanges atomic.Int64
	skipped   atomic.Int64
	queued    atomic.Int64
	entries   atomic.Int64
	wsFrames  atomic.Int64
	failures  atomic.Int64
}

// Stats is a point-in-time view of interception counters.
type Stats struct {
	Sends           int64 `json:"sends" yaml:"sends"`
	Exchanges       int64 `json:"exchanges" yaml:"exchanges"`
	Skipped         int64 `json:"skipped" yaml:"skipped"`
	Queued          int64 `json:"queued" yaml:"queued"`
	Entries         int64 `json:"entries" yaml:"entries"`
	WebSocketFrames int64 `json:"websocket_frames" yaml:"websocket_frames"`
	HandlerFailures int64 `json:"handler_failures" yaml:"handler_failures"`
}

// Stats returns the current counters.
func (ic *Interceptor) Stats() Stats {
	return Stats{
		Sends:           ic.stats.sends.Load(),
		Exchanges:       ic.stats.exchanges.Load(),
		Skipped:         ic.stats.skipped.Load(),
		Queued:          ic.stats.queued.Load(),
		Entries:         ic.stats.entries.Load(),
		WebSocketFrames: ic.stats.wsFrames.Load(),
		HandlerFailures: ic.stats.failures.Load(),
	}
}

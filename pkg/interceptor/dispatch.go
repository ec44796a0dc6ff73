package interceptor

import (
	"strings"

	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/correlation"
)

// HandleSend dispatches the outgoing entries of rec to request handlers.
// It runs before the call is forwarded.
func (ic *Interceptor) HandleSend(rec *correlation.Record) {
	if !ic.Enabled() || rec == nil || !rec.HasBody {
		return
	}
	entries := batch.DecodeOutgoing(rec.Body)
	if len(entries) == 0 {
		return
	}

	ic.dispatchMu.Lock()
	defer ic.dispatchMu.Unlock()

	ic.stats.sends.Add(1)
	for _, entry := range entries {
		service, method := entry.Class(), entry.Method()
		for _, fn := range ic.requests.Lookup(service, method) {
			ic.invoke(NamespaceRequest, service, method, func() error {
				return fn(entry)
			})
		}
	}
}

// HandleLoad accepts a completed exchange. Excluded URLs are dropped; when a
// queue is installed the exchange is buffered, otherwise it is processed
// immediately.
func (ic *Interceptor) HandleLoad(ex *Exchange) {
	if !ic.Enabled() || ex == nil {
		return
	}
	if ic.excluded(ex.ResponseURL()) {
		ic.stats.skipped.Add(1)
		return
	}
	if q := ic.Queue(); q != nil {
		ic.stats.queued.Add(1)
		q.Push(ex)
		return
	}
	ic.Process(ex)
}

// Process runs raw, metadata and batch dispatch for ex synchronously.
func (ic *Interceptor) Process(ex *Exchange) {
	if ex.Record == nil {
		ex.Record = &correlation.Record{}
	}
	rec := ex.Record
	url := ex.TargetURL()

	ic.dispatchMu.Lock()
	defer ic.dispatchMu.Unlock()

	ic.stats.exchanges.Add(1)

	for _, fn := range ic.raw.All() {
		ic.invoke(NamespaceRaw, "", "", func() error {
			return fn(ex, rec)
		})
	}

	if metaType, id, ok := ParseMetaID(url, ic.cfg.MetaMarker); ok {
		ic.setMetaID(metaType, id)
		handlers := ic.meta.Lookup(metaType)
		ic.logger.Debug().
			Str("meta_type", metaType).
			Str("meta_id", id).
			Int("handlers", len(handlers)).
			Msg("Metadata captured")
		for _, fn := range handlers {
			ic.invoke(NamespaceMeta, metaType, "", func() error {
				return fn(ex, rec.Body)
			})
		}
	}

	if ic.cfg.GameDataMarker == "" || !strings.Contains(url, ic.cfg.GameDataMarker) {
		return
	}

	entries, ok := batch.DecodeIncoming(ex.Body)
	if !ok {
		ic.logger.Debug().Str("url", url).Msg("Unparseable game response")
		return
	}
	outgoing := batch.DecodeOutgoing(rec.Body)

	for _, entry := range batch.Order(entries) {
		ic.appendHistory(entry.Name())
		ic.stats.entries.Add(1)

		correlated := batch.Correlate(entry, outgoing)
		service, method := entry.Class(), entry.Method()
		for _, fn := range ic.responses.Lookup(service, method) {
			ic.invoke(NamespaceResponse, service, method, func() error {
				return fn(entry, correlated)
			})
		}
	}
}

// HandleWebSocketMessage accepts an inbound WebSocket frame. When a
// WebSocket queue is installed the frame is buffered, otherwise it is
// processed immediately.
func (ic *Interceptor) HandleWebSocketMessage(data []byte) {
	if !ic.Enabled() {
		return
	}
	if q := ic.WebSocketQueue(); q != nil {
		q.Push(append([]byte(nil), data...))
		return
	}
	ic.ProcessWebSocketMessage(data)
}

// ProcessWebSocketMessage dispatches one WebSocket frame synchronously.
func (ic *Interceptor) ProcessWebSocketMessage(data []byte) {
	if string(data) == ic.cfg.KeepAliveMessage {
		return
	}
	payload, ok := batch.Parse(data)
	if !ok {
		return
	}

	ic.dispatchMu.Lock()
	defer ic.dispatchMu.Unlock()

	ic.stats.wsFrames.Add(1)

	for _, fn := range ic.wsRaw.All() {
		ic.invoke(NamespaceWsRaw, "", "", func() error {
			return fn(payload)
		})
	}

	for _, entry := range batch.FromPush(payload) {
		service, method := entry.Class(), entry.Method()
		for _, fn := range ic.ws.Lookup(service, method) {
			ic.invoke(NamespaceWs, service, method, func() error {
				return fn(entry)
			})
		}
	}
}

// ParseMetaID extracts the metadata type and ID following marker in url.
// The text after the marker is split on "-": the first part is the type and
// the second the ID. Any further parts are ignored.
func ParseMetaID(url, marker string) (metaType, id string, ok bool) {
	if marker == "" {
		return "", "", false
	}
	idx := strings.Index(url, marker)
	if idx < 0 {
		return "", "", false
	}
	parts := strings.SplitN(url[idx+len(marker):], "-", 3)
	metaType = parts[0]
	if len(parts) > 1 {
		id = parts[1]
	}
	return metaType, id, true
}

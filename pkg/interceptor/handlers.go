package interceptor

import (
	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/correlation"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/registry"
)

// Handler namespaces, as reported in logs and HandlerError.
const (
	NamespaceResponse = "response"
	NamespaceRequest  = "request"
	NamespaceMeta     = "meta"
	NamespaceRaw      = "raw"
	NamespaceWs       = "ws"
	NamespaceWsRaw    = "ws-raw"
)

// Callback shapes.
type (
	// ResponseHandler receives one response entry and the outgoing entries
	// correlated with it.
	ResponseHandler func(entry batch.Entry, correlated []batch.Entry) error

	// RequestHandler receives one outgoing entry before the response exists.
	RequestHandler func(entry batch.Entry) error

	// MetaHandler receives a metadata exchange and its raw outgoing body.
	MetaHandler func(ex *Exchange, outgoingBody []byte) error

	// RawHandler receives every completed exchange that is not excluded.
	RawHandler func(ex *Exchange, rec *correlation.Record) error

	// WsHandler receives one WebSocket entry.
	WsHandler func(entry batch.Entry) error

	// WsRawHandler receives every parsed WebSocket payload.
	WsRawHandler func(payload any) error
)

// AddHandler registers a response handler. Empty service or method means
// "all".
func (ic *Interceptor) AddHandler(service, method string, fn ResponseHandler) {
	ic.responses.Add(registry.NewKey(service, method), fn)
}

// AddRequestHandler registers a pre-flight handler for outgoing entries.
func (ic *Interceptor) AddRequestHandler(service, method string, fn RequestHandler) {
	ic.requests.Add(registry.NewKey(service, method), fn)
}

// AddMetaHandler registers a handler for metadata documents of metaType.
func (ic *Interceptor) AddMetaHandler(metaType string, fn MetaHandler) {
	ic.meta.Add(metaType, fn)
}

// AddRawHandler registers a handler for every completed exchange.
func (ic *Interceptor) AddRawHandler(fn RawHandler) {
	ic.raw.Add(fn)
}

// AddWsHandler registers a WebSocket entry handler.
func (ic *Interceptor) AddWsHandler(service, method string, fn WsHandler) {
	ic.ws.Add(registry.NewKey(service, method), fn)
}

// AddWsRawHandler registers a handler for every parsed WebSocket payload.
func (ic *Interceptor) AddWsRawHandler(fn WsRawHandler) {
	ic.wsRaw.Add(fn)
}

// HandlerCount returns the number of handlers per namespace.
func (ic *Interceptor) HandlerCount() map[string]int {
	return map[string]int{
		NamespaceResponse: ic.responses.Len(),
		NamespaceRequest:  ic.requests.Len(),
		NamespaceMeta:     ic.meta.Total(),
		NamespaceRaw:      ic.raw.Len(),
		NamespaceWs:       ic.ws.Len(),
		NamespaceWsRaw:    ic.wsRaw.Len(),
	}
}

// invoke runs fn, converting a returned error or a panic into a logged
// HandlerError.
func (ic *Interceptor) invoke(namespace, service, method string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			ic.stats.failures.Add(1)
			herr := &errors.HandlerError{Namespace: namespace, Service: service, Method: method, Panic: r}
			ic.logger.Error().
				Err(herr).
				Str("namespace", namespace).
				Str("service", service).
				Str("method", method).
				Msg("Handler panicked")
		}
	}()

	if err := fn(); err != nil {
		ic.stats.failures.Add(1)
		ic.logger.Warn().
			Err(errors.WrapHandler(namespace, service, method, err)).
			Str("namespace", namespace).
			Str("service", service).
			Str("method", method).
			Msg("Handler failed")
	}
}

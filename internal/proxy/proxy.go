// Package proxy serves the game through an intercepting reverse proxy.
//
// Plain HTTP is forwarded with httputil.ReverseProxy over the intercepting
// transport. WebSocket upgrades are relayed frame by frame through an
// intercepting connection to the upstream, so pushes reach the interceptor
// exactly as a patched game client would see them.
package proxy

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
	"github.com/agentstation/forgetap/pkg/logging"
	"github.com/agentstation/forgetap/pkg/transport"
)

// Proxy is an http.Handler forwarding to one upstream origin.
type Proxy struct {
	upstream *url.URL
	ic       *interceptor.Interceptor
	rp       *httputil.ReverseProxy
	sockets  *transport.Sockets
	dialer   *websocket.Dialer
	upgrader websocket.Upgrader
	logger   *zerolog.Logger

	base       http.RoundTripper
	transports []transport.Option

	relays sync.WaitGroup
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(p *Proxy) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTransport sets the base transport used for upstream HTTP calls.
func WithTransport(base http.RoundTripper) Option {
	return func(p *Proxy) {
		p.base = base
	}
}

// WithDialer sets the dialer used for upstream WebSocket connections.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Proxy) {
		if d != nil {
			p.dialer = d
		}
	}
}

// WithSockets shares a WebSocket wrapper, so observation state and counts
// are visible to the caller.
func WithSockets(s *transport.Sockets) Option {
	return func(p *Proxy) {
		p.sockets = s
	}
}

// WithMaxInspectBytes bounds the bodies buffered for inspection.
func WithMaxInspectBytes(n int64) Option {
	return func(p *Proxy) {
		p.transports = append(p.transports, transport.WithMaxInspectBytes(n))
	}
}

// New creates a Proxy for upstream, an absolute http or https URL.
func New(upstream string, ic *interceptor.Interceptor, opts ...Option) (*Proxy, error) {
	u, err := url.Parse(upstream)
	if err != nil {
		return nil, errors.NewConfigError("proxy", "invalid upstream URL", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.NewConfigError("proxy", "upstream must be an absolute http(s) URL", nil)
	}

	p := &Proxy{
		upstream: u,
		ic:       ic,
		logger:   logging.Default(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: constants.WebSocketHandshakeTimeout,
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sockets == nil {
		p.sockets = transport.NewSockets(ic)
	}

	rt := transport.Wrap(p.base, ic, append([]transport.Option{transport.WithLogger(p.logger)}, p.transports...)...)
	p.rp = &httputil.ReverseProxy{
		Rewrite:      p.rewrite,
		Transport:    rt,
		ErrorHandler: p.handleError,
	}
	return p, nil
}

// Upstream returns the upstream origin.
func (p *Proxy) Upstream() string {
	return p.upstream.String()
}

// Sockets returns the WebSocket wrapper.
func (p *Proxy) Sockets() *transport.Sockets {
	return p.sockets
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		p.relay(w, r)
		return
	}
	p.rp.ServeHTTP(w, r)
}

// Wait blocks until every WebSocket relay has finished or ctx is done.
func (p *Proxy) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.relays.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rewrite points the request at the upstream. Only gzip is offered
// upstream, since that is the only encoding the transport can inspect.
func (p *Proxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.upstream)
	pr.SetXForwarded()
	pr.Out.Host = p.upstream.Host

	if acceptsGzip(pr.In.Header.Get("Accept-Encoding")) {
		pr.Out.Header.Set("Accept-Encoding", "gzip")
	} else {
		pr.Out.Header.Set("Accept-Encoding", "identity")
	}
}

func (p *Proxy) handleError(w http.ResponseWriter, r *http.Request, err error) {
	perr := errors.WrapProxy(p.upstream.Host, 0, err)
	p.logger.Warn().Err(perr).Str("method", r.Method).Str("path", r.URL.Path).Msg("Upstream request failed")
	http.Error(w, "upstream unavailable", http.StatusBadGateway)
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		params := strings.Split(part, ";")
		if !strings.EqualFold(strings.TrimSpace(params[0]), "gzip") {
			continue
		}
		for _, param := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
			if ok && strings.EqualFold(k, "q") {
				q, err := strconv.ParseFloat(v, 64)
				return err == nil && q > 0
			}
		}
		return true
	}
	return false
}

// upstreamWebSocketURL maps a client request to the upstream ws(s) URL.
func (p *Proxy) upstreamWebSocketURL(r *http.Request) string {
	u := *p.upstream
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = singleJoiningSlash(p.upstream.Path, r.URL.Path)
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func singleJoiningSlash(a, b string) string {
	switch {
	case strings.HasSuffix(a, "/") && strings.HasPrefix(b, "/"):
		return a + b[1:]
	case !strings.HasSuffix(a, "/") && !strings.HasPrefix(b, "/") && b != "":
		return a + "/" + b
	}
	return a + b
}

// forwardedHeaders are copied to the upstream WebSocket handshake.
var forwardedHeaders = []string{"Cookie", "Origin", "User-Agent", "Authorization", "Accept-Language"}

func (p *Proxy) relay(w http.ResponseWriter, r *http.Request) {
	// Counted before the connection is hijacked, so a Wait that follows
	// http.Server.Shutdown always sees it.
	p.relays.Add(1)
	defer p.relays.Done()

	target := p.upstreamWebSocketURL(r)
	logger := p.logger.With().Str("url", target).Logger()

	header := http.Header{}
	for _, name := range forwardedHeaders {
		if v := r.Header.Values(name); len(v) > 0 {
			header[name] = v
		}
	}
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		header.Set("Sec-WebSocket-Protocol", strings.Join(protocols, ", "))
	}

	ctx, cancel := context.WithTimeout(r.Context(), constants.DialTimeout)
	upstream, resp, err := p.sockets.Dial(ctx, p.dialer, target, header)
	cancel()
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		logger.Warn().Err(errors.WrapProxy(p.upstream.Host, status, err)).Msg("Upstream WebSocket dial failed")
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}

	var respHeader http.Header
	if proto := upstream.Subprotocol(); proto != "" {
		respHeader = http.Header{"Sec-WebSocket-Protocol": []string{proto}}
	}
	client, err := p.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		_ = upstream.Close()
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	client.SetReadLimit(constants.WebSocketReadLimit)

	logger.Info().Msg("WebSocket relay opened")

	errc := make(chan error, 2)
	go func() { errc <- pumpToUpstream(client, upstream) }()
	go func() { errc <- pumpToClient(upstream, client) }()

	err = <-errc
	closeBoth(client, upstream.Conn, err)
	<-errc

	logger.Info().Msg("WebSocket relay closed")
}

// pumpToUpstream copies client frames upstream. Writing through the
// intercepting connection marks it observed.
func pumpToUpstream(client *websocket.Conn, upstream *transport.Conn) error {
	for {
		kind, data, err := client.ReadMessage()
		if err != nil {
			return err
		}
		if err := upstream.WriteMessage(kind, data); err != nil {
			return err
		}
	}
}

// pumpToClient copies upstream frames to the client. Reading through the
// intercepting connection dispatches them.
func pumpToClient(upstream *transport.Conn, client *websocket.Conn) error {
	for {
		kind, data, err := upstream.ReadMessage()
		if err != nil {
			return err
		}
		if err := client.WriteMessage(kind, data); err != nil {
			return err
		}
	}
}

// closeBoth forwards a close frame with the original code when there is
// one and closes both connections.
func closeBoth(a, b *websocket.Conn, cause error) {
	code, text := websocket.CloseNormalClosure, ""
	var ce *websocket.CloseError
	if errors.As(cause, &ce) {
		code, text = ce.Code, ce.Text
		if code == websocket.CloseNoStatusReceived || code == websocket.CloseAbnormalClosure {
			code = websocket.CloseNormalClosure
		}
	}
	msg := websocket.FormatCloseMessage(code, text)
	deadline := time.Now().Add(time.Second)
	_ = a.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = b.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = a.Close()
	_ = b.Close()
}

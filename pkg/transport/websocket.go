package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/agentstation/forgetap/pkg/correlation"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// Sockets wraps WebSocket connections for one interceptor. A socket becomes
// observed after its first successful send while interception is enabled;
// from then on its inbound text frames are dispatched. Observation is
// tracked per underlying connection, so wrapping a connection twice never
// delivers a frame twice.
type Sockets struct {
	ic       *interceptor.Interceptor
	observed *correlation.WeakSet[websocket.Conn]
}

// NewSockets creates a Sockets for ic.
func NewSockets(ic *interceptor.Interceptor) *Sockets {
	return &Sockets{
		ic:       ic,
		observed: correlation.NewWeakSet[websocket.Conn](),
	}
}

// Wrap decorates c.
func (s *Sockets) Wrap(c *websocket.Conn) *Conn {
	return &Conn{Conn: c, sockets: s}
}

// Dial opens a client connection through dialer and wraps it. A nil dialer
// means websocket.DefaultDialer.
func (s *Sockets) Dial(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header) (*Conn, *http.Response, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	c, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, err
	}
	return s.Wrap(c), resp, nil
}

// Observed returns the number of live observed sockets.
func (s *Sockets) Observed() int {
	return s.observed.Len()
}

// Conn is an intercepting WebSocket connection. The Message and JSON
// methods are intercepted; NextReader and NextWriter stream frames past
// the interceptor, and every other method of the embedded connection
// behaves as usual.
type Conn struct {
	*websocket.Conn
	sockets *Sockets
}

// WriteMessage forwards the frame, then starts observing the socket if
// interception is enabled. The error is the underlying connection's.
func (c *Conn) WriteMessage(messageType int, data []byte) error {
	err := c.Conn.WriteMessage(messageType, data)
	if c.sockets.ic.Enabled() {
		c.sockets.observed.Add(c.Conn)
	}
	return err
}

// ReadMessage forwards the read and dispatches text frames of observed
// sockets. The returned values are exactly the underlying connection's.
func (c *Conn) ReadMessage() (int, []byte, error) {
	messageType, data, err := c.Conn.ReadMessage()
	if err == nil && messageType == websocket.TextMessage && c.sockets.observed.Has(c.Conn) {
		c.sockets.ic.HandleWebSocketMessage(data)
	}
	return messageType, data, err
}

// WriteJSON encodes v as a text frame and sends it through WriteMessage.
func (c *Conn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// ReadJSON reads the next frame through ReadMessage and decodes it into v.
func (c *Conn) ReadJSON(v any) error {
	_, data, err := c.ReadMessage()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// Observed reports whether frames read from c are dispatched.
func (c *Conn) Observed() bool {
	return c.sockets.observed.Has(c.Conn)
}

package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/transport"
)

var frames = []string{
	`[{"requestClass":"CityMapService","requestMethod":"updateEntity","responseData":[{"id":1}]}]`,
	"PONG",
	`{"__class__":"ServerResponse","requestClass":"StartupService","requestMethod":"getData"}`,
}

// pushServer sends frames after every message it receives.
func pushServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
			for _, f := range frames {
				if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readAll(t *testing.T, c *transport.Conn, n int) []string {
	t.Helper()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		out = append(out, string(data))
	}
	return out
}

func TestWebSocketDispatch(t *testing.T) {
	url := pushServer(t)
	ic := newInterceptor()
	sockets := transport.NewSockets(ic)

	var got []string
	ic.AddWsHandler("", "", func(entry batch.Entry) error {
		got = append(got, entry.Name())
		return nil
	})

	c, _, err := sockets.Dial(context.Background(), nil, url, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Observed())
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.True(t, c.Observed())

	assert.Equal(t, frames, readAll(t, c, len(frames)))
	assert.Equal(t, []string{"CityMapService.updateEntity", "StartupService.getData"}, got)
}

func TestWebSocketJSONMethodsIntercepted(t *testing.T) {
	url := pushServer(t)
	ic := newInterceptor()
	sockets := transport.NewSockets(ic)

	var got []string
	ic.AddWsHandler("", "", func(entry batch.Entry) error {
		got = append(got, entry.Name())
		return nil
	})

	c, _, err := sockets.Dial(context.Background(), nil, url, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteJSON(map[string]string{"hello": "world"}))
	assert.True(t, c.Observed())

	var first []map[string]any
	require.NoError(t, c.ReadJSON(&first))
	require.Len(t, first, 1)
	assert.Equal(t, "updateEntity", first[0]["requestMethod"])
	assert.Equal(t, []string{"CityMapService.updateEntity"}, got)
}

func TestWebSocketListenerAttachedOnce(t *testing.T) {
	url := pushServer(t)
	ic := newInterceptor()
	sockets := transport.NewSockets(ic)

	var raw int
	ic.AddWsRawHandler(func(any) error { raw++; return nil })

	c, _, err := sockets.Dial(context.Background(), nil, url, nil)
	require.NoError(t, err)
	defer c.Close()

	again := sockets.Wrap(c.Conn)
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("one")))
	require.NoError(t, again.WriteMessage(websocket.TextMessage, []byte("two")))
	assert.Equal(t, 1, sockets.Observed())

	readAll(t, c, len(frames))
	readAll(t, again, len(frames))

	// PONG is dropped before raw handlers; two JSON frames per burst
	assert.Equal(t, 4, raw)
}

func TestWebSocketDisabledNotObserved(t *testing.T) {
	url := pushServer(t)
	ic := newInterceptor()
	ic.SetEnabled(false)
	sockets := transport.NewSockets(ic)

	var raw int
	ic.AddWsRawHandler(func(any) error { raw++; return nil })

	c, _, err := sockets.Dial(context.Background(), nil, url, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.False(t, c.Observed())
	assert.Equal(t, frames, readAll(t, c, len(frames)))
	assert.Equal(t, 0, raw)
}

func TestWebSocketDialError(t *testing.T) {
	sockets := transport.NewSockets(newInterceptor())
	_, _, err := sockets.Dial(context.Background(), nil, "ws://127.0.0.1:1/socket", nil)
	assert.Error(t, err)
}

package proxy

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/batch"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

const gameBody = `[{"requestClass":"CityMapService","requestMethod":"getEntities","requestId":2,"responseData":[{"id":1}]}]`

func nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// upstream serves game JSON, gzipped when asked, and a WebSocket endpoint
// that answers every frame with a push.
func upstream(t *testing.T, gotEncoding *atomic.Value) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/game/json", func(w http.ResponseWriter, r *http.Request) {
		gotEncoding.Store(r.Header.Get("Accept-Encoding"))
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Accept-Encoding") == "gzip" {
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gzipped(t, gameBody))
			return
		}
		_, _ = w.Write([]byte(gameBody))
	})
	mux.HandleFunc("/socket/", func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, _, err := c.ReadMessage()
			if err != nil {
				return
			}
			push := `[{"requestClass":"OtherPlayerService","requestMethod":"newEvent","responseData":{}}]`
			if err := c.WriteMessage(websocket.TextMessage, []byte(push)); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newProxy(t *testing.T, target string) (*interceptor.Interceptor, *httptest.Server) {
	t.Helper()
	ic := interceptor.New(interceptor.WithLogger(nop()))
	p, err := New(target, ic, WithLogger(nop()))
	require.NoError(t, err)
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	return ic, srv
}

func TestNewValidatesUpstream(t *testing.T) {
	ic := interceptor.New(interceptor.WithLogger(nop()))
	for _, bad := range []string{"", "en1.forgeofempires.com", "ftp://x", "://"} {
		_, err := New(bad, ic)
		assert.Error(t, err, bad)
	}
}

func TestProxyDispatchesHTTP(t *testing.T) {
	var encoding atomic.Value
	up := upstream(t, &encoding)
	ic, srv := newProxy(t, up.URL)

	var calls atomic.Int32
	ic.AddHandler("CityMapService", "getEntities", func(entry batch.Entry, correlated []batch.Entry) error {
		calls.Add(1)
		assert.Len(t, correlated, 1)
		return nil
	})

	t.Run("gzip passes through", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/game/json?h=x",
			strings.NewReader(`[{"requestClass":"CityMapService","requestMethod":"getEntities","requestId":2}]`))
		require.NoError(t, err)
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")

		resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, "gzip", encoding.Load())
		assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
		assert.Equal(t, gzipped(t, gameBody)[:3], raw[:3])
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("identity when gzip refused", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/game/json?h=x",
			strings.NewReader(`[{"requestClass":"CityMapService","requestMethod":"getEntities","requestId":2}]`))
		require.NoError(t, err)
		req.Header.Set("Accept-Encoding", "br")

		resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		assert.Equal(t, "identity", encoding.Load())
		assert.Equal(t, gameBody, string(raw))
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestProxyUpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	_, srv := newProxy(t, url)
	resp, err := http.Get(srv.URL + "/game/json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestProxyRelaysWebSocket(t *testing.T) {
	var encoding atomic.Value
	up := upstream(t, &encoding)
	ic, srv := newProxy(t, up.URL)

	pushes := make(chan string, 4)
	ic.AddWsHandler("OtherPlayerService", "newEvent", func(entry batch.Entry) error {
		pushes <- entry.Name()
		return nil
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket/?h=x"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(`[{"requestClass":"TimeService","requestMethod":"updateTime"}]`)))
	_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "newEvent")

	select {
	case name := <-pushes:
		assert.Equal(t, "OtherPlayerService.newEvent", name)
	case <-time.After(5 * time.Second):
		t.Fatal("push not dispatched")
	}
}

func TestWaitTracksOpenRelays(t *testing.T) {
	var encoding atomic.Value
	up := upstream(t, &encoding)
	ic := interceptor.New(interceptor.WithLogger(nop()))
	p, err := New(up.URL, ic, WithLogger(nop()))
	require.NoError(t, err)
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/socket/"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx), context.DeadlineExceeded)

	require.NoError(t, c.Close())
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, p.Wait(ctx))
}

func TestWaitAfterFailedRelay(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	ic := interceptor.New(interceptor.WithLogger(nop()))
	p, err := New(url, ic, WithLogger(nop()))
	require.NoError(t, err)
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/socket/", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Wait(ctx))
}

func TestAcceptsGzip(t *testing.T) {
	tests := []struct {
		header string
		want   bool
	}{
		{"gzip", true},
		{"gzip, deflate, br", true},
		{"br;q=1.0, gzip;q=0.5", true},
		{"gzip;q=0", false},
		{"deflate", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, acceptsGzip(tt.header))
		})
	}
}

func TestUpstreamWebSocketURL(t *testing.T) {
	ic := interceptor.New(interceptor.WithLogger(nop()))
	p, err := New("https://en1.forgeofempires.com/base/", ic)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/socket/?h=abc", nil)
	assert.Equal(t, "wss://en1.forgeofempires.com/base/socket/?h=abc", p.upstreamWebSocketURL(r))
}

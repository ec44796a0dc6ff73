package adapters

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/internal/server/events"
	"github.com/agentstation/forgetap/internal/server/sse"
	ws "github.com/agentstation/forgetap/internal/server/websocket"
)

func run(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go fn(ctx)
}

func TestWebSocketSubscriberDeliversThroughBroker(t *testing.T) {
	logger := zerolog.Nop()
	hub := ws.NewHub(&logger)
	broker := events.NewBroker(&logger)
	broker.Subscribe(NewWebSocketSubscriber(hub))
	run(t, hub.Run)
	run(t, broker.Run)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := ws.NewClient("api-1", hub, conn)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	broker.Publish(events.CityChanged, map[string]any{"kind": "city_map", "count": 12})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg ws.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, string(events.CityChanged), msg.Type)
	assert.Equal(t, map[string]any{"kind": "city_map", "count": float64(12)}, msg.Data)
}

func TestSSESubscriberStreamsEvent(t *testing.T) {
	logger := zerolog.Nop()
	broadcaster := sse.NewBroadcaster(&logger)
	run(t, broadcaster.Run)

	srv := httptest.NewServer(broadcaster)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return broadcaster.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	at := utc.Now()
	sub := NewSSESubscriber(broadcaster)
	require.NoError(t, sub.Send(events.Event{
		Type:      events.PushReceived,
		Timestamp: at,
		Data:      map[string]any{"service": "OtherPlayerService"},
	}))

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 5 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimRight(line, "\n"); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: connected", lines[0])
	assert.Equal(t, []string{
		"event: push.received",
		"id: " + strconv.FormatInt(at.UnixMilli(), 10),
		`data: {"service":"OtherPlayerService"}`,
	}, lines[2:])
}

func TestCloseIsNoop(t *testing.T) {
	logger := zerolog.Nop()
	assert.NoError(t, NewSSESubscriber(sse.NewBroadcaster(&logger)).Close())
	assert.NoError(t, NewWebSocketSubscriber(ws.NewHub(&logger)).Close())
}

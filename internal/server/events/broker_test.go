package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (m *mockSubscriber) Send(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSubscriber) snapshot() ([]Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...), m.closed
}

func newBroker() *Broker {
	logger := zerolog.Nop()
	return NewBroker(&logger)
}

func TestBrokerFanOut(t *testing.T) {
	b := newBroker()
	a, c := &mockSubscriber{}, &mockSubscriber{}
	b.Subscribe(a)
	b.Subscribe(c)
	assert.Equal(t, 2, b.SubscriberCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	b.Publish(CityChanged, map[string]any{"kind": "city_map"})
	b.Publish(PushReceived, map[string]any{"name": "OtherPlayerService.newEvent"})

	for _, sub := range []*mockSubscriber{a, c} {
		require.Eventually(t, func() bool {
			got, _ := sub.snapshot()
			return len(got) == 2
		}, time.Second, 5*time.Millisecond)

		got, _ := sub.snapshot()
		assert.Equal(t, CityChanged, got[0].Type)
		assert.Equal(t, PushReceived, got[1].Type)
		assert.False(t, got[0].Timestamp.IsZero())
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := newBroker()
	sub := &mockSubscriber{}
	b.Subscribe(sub)
	b.Unsubscribe(sub)

	assert.Equal(t, 0, b.SubscriberCount())
	_, closed := sub.snapshot()
	assert.True(t, closed)
}

func TestBrokerShutdownClosesSubscribers(t *testing.T) {
	b := newBroker()
	sub := &mockSubscriber{}
	b.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broker did not stop")
	}
	_, closed := sub.snapshot()
	assert.True(t, closed)
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := newBroker()
	for i := 0; i < cap(b.events)+10; i++ {
		b.Publish(EntryDispatched, i)
	}
	assert.Len(t, b.events, cap(b.events))
}

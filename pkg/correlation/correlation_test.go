package correlation_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/correlation"
)

type call struct {
	id int
	// padding keeps the object off the tiny allocator so cleanups run promptly
	_ [64]byte
}

func TestAssociateCreatesOrFetches(t *testing.T) {
	s := correlation.NewStore[call]()
	a, b := &call{id: 1}, &call{id: 2}

	recA := s.Associate(a)
	recA.Method, recA.URL = "POST", "https://x/game/json?h=1"
	recA.SetBody([]byte(`[]`))

	assert.Same(t, recA, s.Associate(a))
	assert.NotSame(t, recA, s.Associate(b))
	assert.Equal(t, 2, s.Len())

	got, ok := s.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "POST", got.Method)
	assert.True(t, got.HasBody)

	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
}

func TestRelease(t *testing.T) {
	s := correlation.NewStore[call]()
	a := &call{id: 1}

	s.Associate(a)
	s.Release(a)

	_, ok := s.Lookup(a)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// a fresh record after release
	rec := s.Associate(a)
	assert.Empty(t, rec.Method)
	runtime.KeepAlive(a)
}

func TestSetBodyNil(t *testing.T) {
	rec := &correlation.Record{}
	rec.SetBody(nil)
	assert.False(t, rec.HasBody)
	rec.SetBody([]byte{})
	assert.True(t, rec.HasBody)
}

func TestStoreDoesNotRetainObjects(t *testing.T) {
	s := correlation.NewStore[call]()
	for i := 0; i < 100; i++ {
		s.Associate(&call{id: i})
	}

	assert.Eventually(t, func() bool {
		runtime.GC()
		return s.Len() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWeakSet(t *testing.T) {
	w := correlation.NewWeakSet[call]()
	a := &call{id: 1}

	assert.True(t, w.Add(a))
	assert.False(t, w.Add(a))
	assert.True(t, w.Has(a))
	assert.False(t, w.Has(&call{id: 2}))
	assert.Equal(t, 1, w.Len())
	runtime.KeepAlive(a)

	for i := 0; i < 10; i++ {
		w.Add(&call{id: i})
	}
	assert.Eventually(t, func() bool {
		runtime.GC()
		return w.Len() <= 1
	}, 5*time.Second, 10*time.Millisecond)
}

// Package correlation associates per-call metadata with in-flight transport
// objects without keeping those objects alive.
//
// Entries are keyed by pointer identity through weak pointers. An entry
// disappears when its owner calls Release on completion, or when the
// garbage collector reclaims the transport object, whichever comes first.
// The store offers no enumeration.
package correlation

import (
	"runtime"
	"sync"
	"weak"
)

// Record is the metadata captured for one transport call. Method and URL
// are set when the call is opened, Body when it is sent.
type Record struct {
	Method  string
	URL     string
	Body    []byte
	HasBody bool
}

// SetBody stores the outgoing body. A nil body leaves HasBody false.
func (r *Record) SetBody(body []byte) {
	r.Body = body
	r.HasBody = body != nil
}

// Store maps transport objects of type T to their Record.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[weak.Pointer[T]]*Record
}

// NewStore creates an empty Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[weak.Pointer[T]]*Record)}
}

// Associate returns the record for obj, creating it on first use.
func (s *Store[T]) Associate(obj *T) *Record {
	key := weak.Make(obj)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.entries[key]; ok {
		return rec
	}
	rec := &Record{}
	s.entries[key] = rec
	runtime.AddCleanup(obj, s.forget, key)
	return rec
}

// Lookup returns the record for obj without creating one.
func (s *Store[T]) Lookup(obj *T) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.entries[weak.Make(obj)]
	return rec, ok
}

// Release drops the record for obj once its call has completed.
func (s *Store[T]) Release(obj *T) {
	s.forget(weak.Make(obj))
}

// Len returns the number of live entries.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store[T]) forget(key weak.Pointer[T]) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// WeakSet tracks object identities without retaining the objects.
type WeakSet[T any] struct {
	mu      sync.Mutex
	members map[weak.Pointer[T]]struct{}
}

// NewWeakSet creates an empty WeakSet.
func NewWeakSet[T any]() *WeakSet[T] {
	return &WeakSet[T]{members: make(map[weak.Pointer[T]]struct{})}
}

// Add inserts obj and reports whether it was not already present.
func (w *WeakSet[T]) Add(obj *T) bool {
	key := weak.Make(obj)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.members[key]; ok {
		return false
	}
	w.members[key] = struct{}{}
	runtime.AddCleanup(obj, w.remove, key)
	return true
}

// Has reports whether obj is present.
func (w *WeakSet[T]) Has(obj *T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.members[weak.Make(obj)]
	return ok
}

// Len returns the number of live members.
func (w *WeakSet[T]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.members)
}

func (w *WeakSet[T]) remove(key weak.Pointer[T]) {
	w.mu.Lock()
	delete(w.members, key)
	w.mu.Unlock()
}

// Package registry stores handler callbacks keyed by service and method.
//
// Keys are (service, method) pairs where either side may be the wildcard
// "all". A lookup for a concrete pair walks four tiers in a fixed order:
// (S,M), (all,M), (S,all), (all,all). Handlers are appended, never replaced
// or deduplicated, and there is no removal.
package registry

import (
	"sync"

	"github.com/agentstation/forgetap/pkg/constants"
)

// Wildcard matches any service or method.
const Wildcard = constants.Wildcard

// Key identifies a (service, method) registration.
type Key struct {
	Service string
	Method  string
}

// NewKey builds a registration key. Empty parts become the wildcard.
func NewKey(service, method string) Key {
	if service == "" {
		service = Wildcard
	}
	if method == "" {
		method = Wildcard
	}
	return Key{Service: service, Method: method}
}

// String returns "service.method".
func (k Key) String() string {
	return k.Service + "." + k.Method
}

// Tiers returns the four keys consulted when dispatching service.method, in
// dispatch order. The inputs are used verbatim so an entry without a class
// or method only reaches wildcard registrations.
func Tiers(service, method string) [4]Key {
	return [4]Key{
		{Service: service, Method: method},
		{Service: Wildcard, Method: method},
		{Service: service, Method: Wildcard},
		{Service: Wildcard, Method: Wildcard},
	}
}

// Registry holds ordered handler lists per Key.
type Registry[F any] struct {
	mu       sync.RWMutex
	handlers map[Key][]F
	count    int
}

// New creates an empty Registry.
func New[F any]() *Registry[F] {
	return &Registry[F]{handlers: make(map[Key][]F)}
}

// Add appends fn under key.
func (r *Registry[F]) Add(key Key, fn F) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], fn)
	r.count++
}

// Lookup returns every handler that applies to service.method in tier
// order. The slice is a copy; handlers added while the caller iterates are
// not visible to it.
func (r *Registry[F]) Lookup(service, method string) []F {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []F
	tiers := Tiers(service, method)
	for i, key := range tiers {
		if seen(tiers[:i], key) {
			continue
		}
		out = append(out, r.handlers[key]...)
	}
	return out
}

// seen skips a tier that repeats an earlier one, so a wildcard dispatch
// does not invoke the same list twice.
func seen(prev []Key, key Key) bool {
	for _, p := range prev {
		if p == key {
			return true
		}
	}
	return false
}

// Len returns the total number of registered handlers.
func (r *Registry[F]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Keys returns every key with at least one handler.
func (r *Registry[F]) Keys() []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	return keys
}

// Named holds ordered handler lists per free-form name, such as a
// metadata type.
type Named[F any] struct {
	mu       sync.RWMutex
	handlers map[string][]F
}

// NewNamed creates an empty Named registry.
func NewNamed[F any]() *Named[F] {
	return &Named[F]{handlers: make(map[string][]F)}
}

// Add appends fn under name.
func (n *Named[F]) Add(name string, fn F) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[name] = append(n.handlers[name], fn)
}

// Lookup returns a copy of the handlers registered under name.
func (n *Named[F]) Lookup(name string) []F {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append([]F(nil), n.handlers[name]...)
}

// Len returns the number of handlers registered under name.
func (n *Named[F]) Len(name string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers[name])
}

// Total returns the number of handlers across every name.
func (n *Named[F]) Total() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	total := 0
	for _, hs := range n.handlers {
		total += len(hs)
	}
	return total
}

// List is an ordered handler list without keys.
type List[F any] struct {
	mu       sync.RWMutex
	handlers []F
}

// NewList creates an empty List.
func NewList[F any]() *List[F] {
	return &List[F]{}
}

// Add appends fn.
func (l *List[F]) Add(fn F) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers = append(l.handlers, fn)
}

// All returns a copy of every handler in registration order.
func (l *List[F]) All() []F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]F(nil), l.handlers...)
}

// Len returns the number of handlers.
func (l *List[F]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.handlers)
}

package forgetap

import (
	"sync"

	"github.com/agentstation/forgetap/pkg/city"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hooks registers callbacks for city view changes.
type Hooks interface {
	// OnCityMapChanged is called when placed buildings are replaced or updated
	OnCityMapChanged(city.ChangeHook)

	// OnCatalogLoaded is called when the building catalog document is loaded
	OnCatalogLoaded(city.ChangeHook)

	// OnMetadataCaptured is called when building definitions are captured
	OnMetadataCaptured(city.ChangeHook)

	// OnChange is called for every change
	OnChange(city.ChangeHook)
}

type hooks struct {
	mu     sync.RWMutex
	byKind map[city.ChangeKind][]city.ChangeHook
	all    []city.ChangeHook
}

func newHooks() *hooks {
	return &hooks{byKind: make(map[city.ChangeKind][]city.ChangeHook)}
}

func (h *hooks) add(kind city.ChangeKind, fn city.ChangeHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.byKind[kind] = append(h.byKind[kind], fn)
}

func (h *hooks) trigger(c city.Change) {
	h.mu.RLock()
	fns := append(append([]city.ChangeHook(nil), h.byKind[c.Kind]...), h.all...)
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (c *client) OnCityMapChanged(fn city.ChangeHook) { c.hooks.add(city.ChangeCityMap, fn) }

func (c *client) OnCatalogLoaded(fn city.ChangeHook) { c.hooks.add(city.ChangeCatalog, fn) }

func (c *client) OnMetadataCaptured(fn city.ChangeHook) { c.hooks.add(city.ChangeMetadata, fn) }

func (c *client) OnChange(fn city.ChangeHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.all = append(c.hooks.all, fn)
}

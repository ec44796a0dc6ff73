// Package city folds intercepted game events into a view of the player's
// city: placed buildings, the building catalog, building metadata, user
// data, unlocked areas and incidents.
//
// A Store registers its handlers on an interceptor with Register. All
// accessors return shallow copies; the Store can be read while traffic flows.
package city

import (
	"sort"
	"strconv"
	"sync"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/logging"
)

// Entity is a placed building from the city map, or a catalog definition.
// Field names follow the game's JSON.
type Entity map[string]any

// ID returns the entity id as a string. Numeric ids are formatted without
// a fraction.
func (e Entity) ID() string {
	return FormatID(e["id"])
}

// EntityID returns cityentity_id, the catalog key of a placed building.
func (e Entity) EntityID() string {
	s, _ := e["cityentity_id"].(string)
	return s
}

// Type returns the building type, such as "residential" or "greatbuilding".
func (e Entity) Type() string {
	s, _ := e["type"].(string)
	return s
}

// Name returns the display name, or "" when absent.
func (e Entity) Name() string {
	s, _ := e["name"].(string)
	return s
}

// FormatID renders a JSON id value as a map key.
func FormatID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	}
	return ""
}

// ChangeKind names the part of the view that changed.
type ChangeKind string

// Change kinds.
const (
	ChangeCityMap       ChangeKind = "city_map"
	ChangeCatalog       ChangeKind = "catalog"
	ChangeMetadata      ChangeKind = "metadata"
	ChangeUser          ChangeKind = "user"
	ChangeUnlockedAreas ChangeKind = "unlocked_areas"
	ChangeIncidents     ChangeKind = "incidents"
)

// Change describes one update to the view.
type Change struct {
	Kind   ChangeKind `json:"kind" yaml:"kind"`
	Source string     `json:"source" yaml:"source"`
	Count  int        `json:"count" yaml:"count"`
	At     utc.Time   `json:"at" yaml:"at"`
}

// ChangeHook is called after the view changes, outside the store lock.
type ChangeHook func(Change)

// Store is the materialized city view.
type Store struct {
	mu            sync.RWMutex
	user          map[string]any
	cityMap       map[string]Entity
	catalog       map[string]Entity
	metadata      map[string]any
	unlockedAreas []any
	incidents     []any
	updatedAt     utc.Time

	hooksMu sync.RWMutex
	hooks   []ChangeHook

	metadataPath string
	logger       *zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetadataCache persists building metadata to path every time it
// changes. An existing file is not loaded; call LoadMetadata for that.
func WithMetadataCache(path string) Option {
	return func(s *Store) {
		s.metadataPath = path
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		cityMap:  make(map[string]Entity),
		catalog:  make(map[string]Entity),
		metadata: make(map[string]any),
		logger:   logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a hook.
func (s *Store) OnChange(fn ChangeHook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *Store) trigger(c Change) {
	s.hooksMu.RLock()
	hooks := append([]ChangeHook(nil), s.hooks...)
	s.hooksMu.RUnlock()

	for _, fn := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Interface("panic", r).Str("kind", string(c.Kind)).Msg("Change hook panicked")
				}
			}()
			fn(c)
		}()
	}
}

// Reset clears the city map and catalog, leaving metadata intact.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cityMap = make(map[string]Entity)
	s.catalog = make(map[string]Entity)
}

// User returns the captured user_data.
func (s *Store) User() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.user)
}

// CityMap returns the placed buildings keyed by id.
func (s *Store) CityMap() map[string]Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntities(s.cityMap)
}

// Buildings returns placed buildings ordered by id.
func (s *Store) Buildings() []Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEntities(s.cityMap)
}

// Catalog returns the building catalog keyed by id.
func (s *Store) Catalog() map[string]Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntities(s.catalog)
}

// Metadata returns the building metadata definitions.
func (s *Store) Metadata() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.metadata)
}

// UnlockedAreas returns the unlocked map areas.
func (s *Store) UnlockedAreas() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]any(nil), s.unlockedAreas...)
}

// Incidents returns the hidden rewards on the map.
func (s *Store) Incidents() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]any(nil), s.incidents...)
}

// UpdatedAt returns the time of the last change.
func (s *Store) UpdatedAt() utc.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyEntities(m map[string]Entity) map[string]Entity {
	out := make(map[string]Entity, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortedEntities orders by numeric id when both ids are numbers, otherwise
// lexically.
func sortedEntities(m map[string]Entity) []Entity {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseFloat(keys[i], 64)
		b, errB := strconv.ParseFloat(keys[j], 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]Entity, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

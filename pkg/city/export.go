package city

import (
	"github.com/agentstation/utc"
)

// ExportInfo identifies the exported city.
type ExportInfo struct {
	Player     string   `json:"player" yaml:"player"`
	City       string   `json:"city" yaml:"city"`
	Era        string   `json:"era" yaml:"era"`
	ExportDate utc.Time `json:"export_date" yaml:"export_date"`
}

// ExportGrid holds the unlocked map areas.
type ExportGrid struct {
	UnlockedAreas []any `json:"unlocked_areas" yaml:"unlocked_areas"`
}

// ExportBuilding is a placed building reduced to what a city planner needs.
type ExportBuilding struct {
	ID           any    `json:"id" yaml:"id"`
	CityEntityID string `json:"cityentity_id" yaml:"cityentity_id"`
	Type         string `json:"type" yaml:"type"`
	X            any    `json:"x" yaml:"x"`
	Y            any    `json:"y" yaml:"y"`
	Orientation  any    `json:"orientation" yaml:"orientation"`
	Level        any    `json:"level" yaml:"level"`
}

// MapExport is a self-contained snapshot of the city for external planners.
type MapExport struct {
	Info        ExportInfo       `json:"info" yaml:"info"`
	Grid        ExportGrid       `json:"grid" yaml:"grid"`
	Definitions map[string]any   `json:"definitions" yaml:"definitions"`
	Buildings   []ExportBuilding `json:"buildings" yaml:"buildings"`
}

// Export builds a MapExport from the current view.
func (s *Store) Export() MapExport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, _ := s.user["user_name"].(string)
	cityName, _ := s.user["city_name"].(string)

	buildings := make([]ExportBuilding, 0, len(s.cityMap))
	for _, e := range sortedEntities(s.cityMap) {
		buildings = append(buildings, ExportBuilding{
			ID:           e["id"],
			CityEntityID: e.EntityID(),
			Type:         e.Type(),
			X:            e["x"],
			Y:            e["y"],
			Orientation:  e["orientation"],
			Level:        e["level"],
		})
	}

	areas := s.unlockedAreas
	if areas == nil {
		areas = []any{}
	}

	return MapExport{
		Info: ExportInfo{
			Player:     player,
			City:       cityName,
			Era:        TownHallEra(s.cityMap),
			ExportDate: utc.Now(),
		},
		Grid:        ExportGrid{UnlockedAreas: append([]any(nil), areas...)},
		Definitions: copyMap(s.metadata),
		Buildings:   buildings,
	}
}

// Summary counts what the store currently holds.
type Summary struct {
	Player        string   `json:"player" yaml:"player"`
	City          string   `json:"city" yaml:"city"`
	Era           string   `json:"era" yaml:"era"`
	Buildings     int      `json:"buildings" yaml:"buildings"`
	Catalog       int      `json:"catalog" yaml:"catalog"`
	Definitions   int      `json:"definitions" yaml:"definitions"`
	UnlockedAreas int      `json:"unlocked_areas" yaml:"unlocked_areas"`
	Incidents     int      `json:"incidents" yaml:"incidents"`
	UpdatedAt     utc.Time `json:"updated_at" yaml:"updated_at"`
}

// Summary returns counts for the current view.
func (s *Store) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, _ := s.user["user_name"].(string)
	cityName, _ := s.user["city_name"].(string)
	return Summary{
		Player:        player,
		City:          cityName,
		Era:           TownHallEra(s.cityMap),
		Buildings:     len(s.cityMap),
		Catalog:       len(s.catalog),
		Definitions:   len(s.metadata),
		UnlockedAreas: len(s.unlockedAreas),
		Incidents:     len(s.incidents),
		UpdatedAt:     s.updatedAt,
	}
}

package filter

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/errors"
)

func buildings() []city.Entity {
	return []city.Entity{
		{"id": float64(1), "cityentity_id": "H_BronzeAge_Townhall", "type": "main_building"},
		{"id": float64(2), "cityentity_id": "R_BronzeAge_Hut", "type": "residential"},
		{"id": float64(3), "cityentity_id": "R_IronAge_House", "type": "residential"},
		{"id": float64(4), "cityentity_id": "X_Shrine", "type": "generic_building"},
	}
}

var catalog = map[string]city.Entity{
	"X_Shrine":        {"id": "X_Shrine", "name": "Shrine of Inspiration"},
	"R_IronAge_House": {"id": "R_IronAge_House", "name": "Frame House"},
}

func TestParseBuildingFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected BuildingFilter
		invalid  bool
	}{
		{"defaults", "", BuildingFilter{Limit: DefaultLimit}, false},
		{"all fields", "type=residential&entity=R_&name_contains=house&limit=5&offset=2",
			BuildingFilter{Type: "residential", EntityPrefix: "R_", NameContains: "house", Limit: 5, Offset: 2}, false},
		{"bad limit falls back", "limit=abc", BuildingFilter{Limit: DefaultLimit}, false},
		{"zero limit", "limit=0", BuildingFilter{}, true},
		{"huge limit", "limit=999999", BuildingFilter{}, true},
		{"negative offset", "offset=-1", BuildingFilter{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseBuildingFilter(httptest.NewRequest("GET", "/api/v1/map/buildings?"+tt.query, nil))
			if tt.invalid {
				assert.True(t, errors.IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestBuildingFilterApply(t *testing.T) {
	ids := func(es []city.Entity) []string {
		out := make([]string, 0, len(es))
		for _, e := range es {
			out = append(out, e.ID())
		}
		return out
	}

	tests := []struct {
		name   string
		filter BuildingFilter
		want   []string
	}{
		{"no filter", BuildingFilter{Limit: 100}, []string{"1", "2", "3", "4"}},
		{"type", BuildingFilter{Type: "Residential", Limit: 100}, []string{"2", "3"}},
		{"entity prefix", BuildingFilter{EntityPrefix: "R_Iron", Limit: 100}, []string{"3"}},
		{"name from catalog", BuildingFilter{NameContains: "shrine", Limit: 100}, []string{"4"}},
		{"limit", BuildingFilter{Limit: 2}, []string{"1", "2"}},
		{"offset", BuildingFilter{Offset: 3, Limit: 100}, []string{"4"}},
		{"offset past end", BuildingFilter{Offset: 10, Limit: 100}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter.Apply(buildings(), catalog)))
		})
	}
}

func TestBoostFilter(t *testing.T) {
	rows := []city.BuildingBoosts{
		{Name: "Watchtower", Count: 3, Size: 1, Boosts: map[string]float64{"all-att_boost_attacker": 2}},
		{Name: "Shrine of Inspiration", Count: 1, Size: 1, Boosts: map[string]float64{"all-att_boost_attacker": 3}},
		{Name: "Frame House", Count: 5, Size: 4},
	}

	t.Run("unknown category", func(t *testing.T) {
		_, err := ParseBoostFilter(httptest.NewRequest("GET", "/api/v1/boosts?category=space", nil))
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("rank by category", func(t *testing.T) {
		f, err := ParseBoostFilter(httptest.NewRequest("GET", "/api/v1/boosts?category=all", nil))
		require.NoError(t, err)
		got := f.Apply(rows)
		require.Len(t, got, 2)
		assert.Equal(t, "Shrine of Inspiration", got[0].Name)
		assert.Equal(t, "Watchtower", got[1].Name)
	})

	t.Run("min count and name", func(t *testing.T) {
		got := BoostFilter{MinCount: 2, NameContains: "house", Limit: 10}.Apply(rows)
		require.Len(t, got, 1)
		assert.Equal(t, "Frame House", got[0].Name)
	})
}

package handlers

import (
	"net/http"

	"github.com/agentstation/forgetap/internal/server/cache"
	"github.com/agentstation/forgetap/internal/server/filter"
	"github.com/agentstation/forgetap/internal/server/response"
	"github.com/agentstation/forgetap/pkg/city"
)

// HandleMap handles GET /api/v1/map, the full map export document.
func (h *Handlers) HandleMap(w http.ResponseWriter, _ *http.Request) {
	export := h.cache.GetOrCompute(cache.KeyMap, func() any {
		return h.tap.City().Export()
	})
	response.OK(w, export)
}

// HandleBuildings handles GET /api/v1/map/buildings with filtering and
// pagination.
func (h *Handlers) HandleBuildings(w http.ResponseWriter, r *http.Request) {
	f, err := filter.ParseBuildingFilter(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	store := h.tap.City()
	all := store.Buildings()
	results := f.Apply(all, store.Catalog())

	response.OK(w, map[string]any{
		"buildings": results,
		"pagination": map[string]any{
			"total":  len(all),
			"limit":  f.Limit,
			"offset": f.Offset,
			"count":  len(results),
		},
	})
}

// HandleBoosts handles GET /api/v1/boosts. With ?category= the rows are
// ranked by efficiency in that category.
func (h *Handlers) HandleBoosts(w http.ResponseWriter, r *http.Request) {
	f, err := filter.ParseBoostFilter(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	rows := h.cache.GetOrCompute(cache.KeyBoosts, func() any {
		return h.tap.City().Boosts()
	}).([]city.BuildingBoosts)

	results := f.Apply(rows)
	out := make([]map[string]any, 0, len(results))
	for _, row := range results {
		item := map[string]any{
			"name":         row.Name,
			"era":          row.Era,
			"count":        row.Count,
			"size":         row.Size,
			"street_level": row.StreetLevel,
			"boosts":       row.Boosts,
		}
		if f.Category != "" {
			item["efficiency"] = row.Efficiency(f.Category)
		}
		out = append(out, item)
	}

	response.OK(w, map[string]any{
		"era":      city.TownHallEra(h.tap.City().CityMap()),
		"category": f.Category,
		"rows":     out,
		"count":    len(out),
	})
}

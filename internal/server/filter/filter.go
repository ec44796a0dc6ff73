// Package filter provides query parameter parsing and filtering for the
// city API endpoints.
package filter

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/errors"
)

// Defaults for paginated endpoints.
const (
	DefaultLimit = 100
	MaxLimit     = 5000
)

// BuildingFilter selects placed buildings from the city map.
type BuildingFilter struct {
	Type         string
	EntityPrefix string
	NameContains string

	Limit  int
	Offset int
}

// ParseBuildingFilter extracts building filter parameters from an HTTP request.
func ParseBuildingFilter(r *http.Request) (BuildingFilter, error) {
	q := r.URL.Query()
	limit, offset, err := parsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		return BuildingFilter{}, err
	}
	return BuildingFilter{
		Type:         q.Get("type"),
		EntityPrefix: q.Get("entity"),
		NameContains: q.Get("name_contains"),
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// Apply filters the buildings and pages the result. catalog resolves display
// names for name_contains; it may be nil.
func (f BuildingFilter) Apply(buildings []city.Entity, catalog map[string]city.Entity) []city.Entity {
	var results []city.Entity
	for _, b := range buildings {
		if f.matches(b, catalog) {
			results = append(results, b)
		}
	}
	return page(results, f.Offset, f.Limit)
}

func (f BuildingFilter) matches(b city.Entity, catalog map[string]city.Entity) bool {
	if f.Type != "" && !strings.EqualFold(b.Type(), f.Type) {
		return false
	}
	if f.EntityPrefix != "" && !strings.HasPrefix(b.EntityID(), f.EntityPrefix) {
		return false
	}
	if f.NameContains != "" {
		name := b.Name()
		if def, ok := catalog[b.EntityID()]; ok && def.Name() != "" {
			name = def.Name()
		}
		if !strings.Contains(strings.ToLower(name), strings.ToLower(f.NameContains)) {
			return false
		}
	}
	return true
}

// BoostFilter selects and ranks rows of the boost report.
type BoostFilter struct {
	Category     string
	NameContains string
	MinCount     int

	Limit  int
	Offset int
}

// ParseBoostFilter extracts boost filter parameters from an HTTP request.
// An unknown category is a validation error.
func ParseBoostFilter(r *http.Request) (BoostFilter, error) {
	q := r.URL.Query()
	limit, offset, err := parsePage(q.Get("limit"), q.Get("offset"))
	if err != nil {
		return BoostFilter{}, err
	}
	category := q.Get("category")
	if category != "" && !slices.Contains(city.Categories, category) {
		return BoostFilter{}, errors.NewValidationError("category", category,
			"must be one of "+strings.Join(city.Categories, ", "))
	}
	return BoostFilter{
		Category:     category,
		NameContains: q.Get("name_contains"),
		MinCount:     parseIntOrDefault(q.Get("min_count"), 0),
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// Apply filters the rows. With a category the rows are ranked by efficiency
// in that category.
func (f BoostFilter) Apply(rows []city.BuildingBoosts) []city.BuildingBoosts {
	if f.Category != "" {
		rows = city.RankByCategory(rows, f.Category)
	}
	var results []city.BuildingBoosts
	for _, r := range rows {
		if r.Count < f.MinCount {
			continue
		}
		if f.NameContains != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.NameContains)) {
			continue
		}
		results = append(results, r)
	}
	return page(results, f.Offset, f.Limit)
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

func parsePage(limitParam, offsetParam string) (limit, offset int, err error) {
	limit = parseIntOrDefault(limitParam, DefaultLimit)
	offset = parseIntOrDefault(offsetParam, 0)
	if limit <= 0 || limit > MaxLimit {
		return 0, 0, errors.NewValidationError("limit", limit,
			"must be between 1 and "+strconv.Itoa(MaxLimit))
	}
	if offset < 0 {
		return 0, 0, errors.NewValidationError("offset", offset, "must not be negative")
	}
	return limit, offset, nil
}

// parseIntOrDefault parses an integer or returns default.
func parseIntOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return def
}

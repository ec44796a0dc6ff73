// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align
}

// SummaryToTableData converts a city summary and interceptor counters to a
// property/value table.
func SummaryToTableData(summary city.Summary, stats interceptor.Stats) Data {
	updated := "-"
	if !summary.UpdatedAt.IsZero() {
		updated = summary.UpdatedAt.Format("2006-01-02 15:04:05")
	}
	return Data{
		Headers: []string{"Property", "Value"},
		Rows: [][]string{
			{"Player", orDash(summary.Player)},
			{"City", orDash(summary.City)},
			{"Era", orDash(summary.Era)},
			{"Buildings", FormatNumber(int64(summary.Buildings))},
			{"Catalog", FormatNumber(int64(summary.Catalog))},
			{"Definitions", FormatNumber(int64(summary.Definitions))},
			{"Unlocked Areas", FormatNumber(int64(summary.UnlockedAreas))},
			{"Incidents", FormatNumber(int64(summary.Incidents))},
			{"Exchanges", FormatNumber(stats.Exchanges)},
			{"Entries", FormatNumber(stats.Entries)},
			{"WebSocket Frames", FormatNumber(stats.WebSocketFrames)},
			{"Handler Failures", FormatNumber(stats.HandlerFailures)},
			{"Updated", updated},
		},
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// BoostsToTableData converts boost report rows to a table with one total
// column per category. With a category, an efficiency column is added.
func BoostsToTableData(rows []city.BuildingBoosts, category string) Data {
	headers := []string{"Name", "Count", "Size", "Street"}
	align := []Align{AlignLeft, AlignRight, AlignRight, AlignLeft}
	for _, c := range city.Categories {
		headers = append(headers, CategoryHeader(c))
		align = append(align, AlignRight)
	}
	if category != "" {
		headers = append(headers, "Efficiency")
		align = append(align, AlignRight)
	}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		row := []string{
			r.Name,
			strconv.Itoa(r.Count),
			strconv.Itoa(r.Size),
			city.StreetText(r.StreetLevel),
		}
		for _, c := range city.Categories {
			row = append(row, FormatBoost(CategoryTotal(r, c)))
		}
		if category != "" {
			row = append(row, strconv.FormatFloat(r.Efficiency(category), 'f', 2, 64))
		}
		out = append(out, row)
	}

	return Data{Headers: headers, Rows: out, ColumnAlignment: align}
}

// BuildingsToTableData converts placed buildings to a table. catalog
// resolves display names; it may be nil.
func BuildingsToTableData(buildings []city.Entity, catalog map[string]city.Entity) Data {
	rows := make([][]string, 0, len(buildings))
	for _, b := range buildings {
		name := b.EntityID()
		if def, ok := catalog[b.EntityID()]; ok && def.Name() != "" {
			name = def.Name()
		}
		rows = append(rows, []string{
			b.ID(),
			name,
			orDash(b.Type()),
			formatCoord(b["x"]),
			formatCoord(b["y"]),
			formatCoord(b["level"]),
		})
	}
	return Data{
		Headers:         []string{"ID", "Name", "Type", "X", "Y", "Level"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignRight, AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight},
	}
}

// CategoryTotal sums the four boosts of a category for one building.
func CategoryTotal(b city.BuildingBoosts, category string) float64 {
	sum := 0.0
	for _, key := range city.CategoryKeys(category) {
		sum += b.Boosts[key]
	}
	return sum
}

// CategoryHeader turns a category key into a column title.
func CategoryHeader(category string) string {
	switch category {
	case "all":
		return "All"
	case "guild_expedition":
		return "GE"
	case "guild_raids":
		return "QI"
	case "battleground":
		return "GBG"
	}
	return strings.ReplaceAll(category, "_", " ")
}

// FormatBoost renders a boost total, or "-" when zero.
func FormatBoost(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatNumber formats large numbers with comma separators.
func FormatNumber(n int64) string {
	str := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(str, "-")
	str = strings.TrimPrefix(str, "-")
	if len(str) <= 3 {
		if neg {
			return "-" + str
		}
		return str
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatCoord(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

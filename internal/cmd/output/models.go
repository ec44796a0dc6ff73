package output

import (
	"io"

	"github.com/agentstation/forgetap/internal/cmd/constants"
	"github.com/agentstation/forgetap/internal/cmd/table"
	"github.com/agentstation/forgetap/pkg/city"
	"github.com/agentstation/forgetap/pkg/interceptor"
)

// tabular reports whether format renders table data rather than raw values.
func tabular(format Format) bool {
	switch format {
	case constants.FormatTable, constants.FormatMarkdown, "":
		return true
	}
	return false
}

// FormatSummary writes the city summary and interceptor counters.
func FormatSummary(w io.Writer, format Format, summary city.Summary, stats interceptor.Stats) error {
	if tabular(format) {
		return NewFormatter(format).Format(w, Document{
			Title: "City",
			Table: table.SummaryToTableData(summary, stats),
		})
	}
	return NewFormatter(format).Format(w, map[string]any{
		"city":        summary,
		"interceptor": stats,
	})
}

// FormatBoosts writes boost report rows. With a category the rows are
// ranked and an efficiency column is shown.
func FormatBoosts(w io.Writer, format Format, rows []city.BuildingBoosts, category string, limit int) error {
	if category != "" {
		rows = city.RankByCategory(rows, category)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if tabular(format) {
		title := "Boosts"
		if category != "" {
			title += " (" + table.CategoryHeader(category) + ")"
		}
		return NewFormatter(format).Format(w, Document{
			Title: title,
			Table: table.BoostsToTableData(rows, category),
		})
	}
	return NewFormatter(format).Format(w, rows)
}

// FormatBuildings writes placed buildings.
func FormatBuildings(w io.Writer, format Format, buildings []city.Entity, catalog map[string]city.Entity, limit int) error {
	if limit > 0 && len(buildings) > limit {
		buildings = buildings[:limit]
	}
	if tabular(format) {
		return NewFormatter(format).Format(w, Document{
			Title: "Buildings",
			Table: table.BuildingsToTableData(buildings, catalog),
		})
	}
	return NewFormatter(format).Format(w, buildings)
}

// FormatAny formats any data type for output.
func FormatAny(w io.Writer, format Format, data any) error {
	return NewFormatter(format).Format(w, data)
}

package globals

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/forgetap/pkg/city"
)

// Report sections printed by the replay command.
const (
	ReportSummary   = "summary"
	ReportBoosts    = "boosts"
	ReportBuildings = "buildings"
	ReportExport    = "export"
)

// Reports lists the valid report sections.
var Reports = []string{ReportSummary, ReportBoosts, ReportBuildings, ReportExport}

// ReportFlags selects what a command prints about the city.
type ReportFlags struct {
	Report   string
	Category string
	Limit    int
}

// AddReportFlags adds report flags to a command.
func AddReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("report", ReportSummary, "Report to print: "+strings.Join(Reports, ", "))
	cmd.Flags().String("category", "", "Rank boosts by category: "+strings.Join(city.Categories, ", "))
	cmd.Flags().Int("limit", 0, "Maximum rows to print (0 for all)")
}

// ParseReport extracts and validates report flags from a command.
// The command must have had AddReportFlags called on it.
func ParseReport(cmd *cobra.Command) (*ReportFlags, error) {
	report := mustGetString(cmd, "report")
	category := mustGetString(cmd, "category")
	limit := mustGetInt(cmd, "limit")

	if !slices.Contains(Reports, report) {
		return nil, fmt.Errorf("invalid report %q: must be one of: %s", report, strings.Join(Reports, ", "))
	}
	if category != "" && !slices.Contains(city.Categories, category) {
		return nil, fmt.Errorf("invalid category %q: must be one of: %s", category, strings.Join(city.Categories, ", "))
	}
	if limit < 0 {
		return nil, fmt.Errorf("invalid limit %d: must not be negative", limit)
	}

	return &ReportFlags{Report: report, Category: category, Limit: limit}, nil
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

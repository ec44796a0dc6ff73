// Package replay provides the replay command, which feeds a recorded
// session through a fresh capture client and prints a city report.
package replay

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/appcontext"
	"github.com/agentstation/forgetap/internal/cmd/globals"
	"github.com/agentstation/forgetap/internal/cmd/output"
	"github.com/agentstation/forgetap/internal/replay"
)

// NewCommand creates the replay command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "replay <file>",
		GroupID: "core",
		Short:   "Replay a recorded session and report on the city",
		Long: `Replay reads a JSON lines recording written by "forgetap proxy --record"
and sends every exchange and WebSocket frame through the same capture
pipeline used for live traffic. The resulting city is then reported.`,
		Example: `  # Summary of the recorded city
  forgetap replay session.jsonl

  # Buildings ranked by battleground boost efficiency
  forgetap replay session.jsonl --report boosts --category battleground --limit 20

  # Write the map export document
  forgetap replay session.jsonl --report export -o json > map.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], app)
		},
	}
	globals.AddReportFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, path string, app appcontext.Interface) error {
	report, err := globals.ParseReport(cmd)
	if err != nil {
		return err
	}
	requested := globals.Parse(cmd).Output
	if requested == "" {
		requested = app.OutputFormat()
	}
	format, err := output.ParseFormat(requested)
	if err != nil {
		return err
	}
	if format == "" {
		format = output.DetectFormat("")
	}

	client, err := app.Client()
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer func() { _ = client.AutoDrainOff() }()

	res, err := replay.NewReplayer(client.Interceptor(), app.Logger()).ReplayFile(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("replaying %s: %w", path, err)
	}
	// Settings may enable queueing; everything recorded should be applied.
	client.Drain()

	app.Logger().Debug().
		Int("exchanges", res.Exchanges).
		Int("frames", res.Frames).
		Int("skipped", res.Skipped).
		Str("report", report.Report).
		Msg("Printing report")

	return Print(cmd.OutOrStdout(), format, client, report)
}

// Print writes the selected report about client's city.
func Print(w io.Writer, format output.Format, client forgetap.Client, report *globals.ReportFlags) error {
	store := client.City()
	switch report.Report {
	case globals.ReportBoosts:
		return output.FormatBoosts(w, format, store.Boosts(), report.Category, report.Limit)
	case globals.ReportBuildings:
		return output.FormatBuildings(w, format, store.Buildings(), store.Catalog(), report.Limit)
	case globals.ReportExport:
		return output.FormatAny(w, format, store.Export())
	default:
		return output.FormatSummary(w, format, store.Summary(), client.Stats())
	}
}

// Package proxy provides the proxy command: the intercepting reverse proxy
// plus the event API.
package proxy

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/forgetap/internal/appcontext"
	"github.com/agentstation/forgetap/internal/config"
)

// NewCommand creates the proxy command using app context.
func NewCommand(app appcontext.Interface) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "proxy",
		GroupID: "core",
		Short:   "Run the intercepting proxy and the event API",
		Long: `Proxy forwards game traffic to the upstream server and observes it on
the way through. HTTP batches and WebSocket pushes are decoded, correlated
and applied to a live city view.

Features:
  - HTTP reverse proxy with gzip-aware body inspection
  - WebSocket relay observed in both directions
  - Event API with the city view, boost report and interceptor controls
  - WebSocket (/api/v1/updates/ws) and SSE (/api/v1/updates/stream) event feeds
  - Optional JSON lines recording for "forgetap replay"
  - Graceful shutdown with connection draining`,
		Example: `  # Proxy a game world
  forgetap proxy --upstream https://en1.forgeofempires.com

  # Record the session and keep building metadata between runs
  forgetap proxy --upstream https://en1.forgeofempires.com \
    --record session.jsonl --metadata-cache forgetap-metadata.json

  # Proxy only, no event API
  forgetap proxy --upstream https://en1.forgeofempires.com --no-api`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := parseOptions(cmd, app.Settings())
			if err != nil {
				return err
			}
			return run(cmd.Context(), app, opts)
		},
	}

	cmd.Flags().String("upstream", "", "Game server origin to forward to (http or https)")
	cmd.Flags().String("listen", "", "Proxy listen address")
	cmd.Flags().String("api-listen", "", "Event API listen address")
	cmd.Flags().Bool("no-api", false, "Do not start the event API")
	cmd.Flags().String("record", "", "Append observed traffic to this JSON lines file")
	cmd.Flags().String("metadata-cache", "", "Load and save building metadata at this path")
	cmd.Flags().Bool("cors", false, "Enable CORS on the event API")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	return cmd
}

// options is the resolved configuration of one proxy run.
type options struct {
	settings    config.Settings
	noAPI       bool
	cors        bool
	corsOrigins []string
}

// parseOptions applies explicitly set flags over the configured settings.
func parseOptions(cmd *cobra.Command, settings config.Settings) (options, error) {
	overrides := map[string]*string{
		"upstream":       &settings.Upstream,
		"listen":         &settings.Listen,
		"api-listen":     &settings.APIListen,
		"record":         &settings.RecordFile,
		"metadata-cache": &settings.MetadataCache,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target = mustGetString(cmd, name)
		}
	}

	if err := settings.ValidateUpstream(); err != nil {
		return options{}, err
	}

	opts := options{
		settings:    settings,
		noAPI:       mustGetBool(cmd, "no-api"),
		cors:        mustGetBool(cmd, "cors"),
		corsOrigins: mustGetStringSlice(cmd, "cors-origins"),
	}
	if len(opts.corsOrigins) > 0 {
		opts.cors = true
	}
	return opts, nil
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
// This should only be used for flags defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

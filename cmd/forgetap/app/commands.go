package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/forgetap/cmd/forgetap/cmd/proxy"
	"github.com/agentstation/forgetap/cmd/forgetap/cmd/replay"
	"github.com/agentstation/forgetap/internal/cmd/output"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(proxy.NewCommand(a))
	rootCmd.AddCommand(replay.NewCommand(a))
	rootCmd.AddCommand(a.newConfigCommand())
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("forgetap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// newConfigCommand prints the resolved capture settings.
func (a *App) newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(a.config.Format)
			if err != nil {
				return err
			}
			if format == "" {
				format = output.FormatYAML
			}
			return output.FormatAny(cmd.OutOrStdout(), format, a.config.Settings)
		},
	}
}

// Package appcontext provides the shared application context interface
// used by all commands, so command packages depend on an interface rather
// than on the concrete App.
package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/config"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Settings returns the resolved capture settings.
	Settings() config.Settings

	// Client creates a capture client from the settings. Extra options
	// are applied after the configured ones.
	Client(...forgetap.Option) (forgetap.Client, error)

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (json, yaml, table, markdown).
	OutputFormat() string

	// Version returns the application version string.
	Version() string

	// Commit returns the git commit hash.
	Commit() string

	// Date returns the build date.
	Date() string

	// BuiltBy returns the build system identifier.
	BuiltBy() string
}

// Package emoji provides symbol constants for CLI output.
package emoji

// Symbols used for status lines.
const (
	// Success marks a completed operation.
	Success = "✓"

	// Stop marks a shutdown.
	Stop = "✗"

	// Info marks an informational line.
	Info = "i"
)

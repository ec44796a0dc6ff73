package appcontext

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap"
	"github.com/agentstation/forgetap/internal/config"
)

// Mock provides a mock implementation of Interface for testing.
// Each method can be customized by setting the corresponding field.
// If a function field is nil, the method returns a default value.
type Mock struct {
	SettingsValue config.Settings
	Format        string
	ClientFunc    func(...forgetap.Option) (forgetap.Client, error)
	LoggerFunc    func() *zerolog.Logger
}

// Settings returns SettingsValue.
func (m *Mock) Settings() config.Settings {
	return m.SettingsValue
}

// Client uses ClientFunc, or builds a real client with a silent logger.
func (m *Mock) Client(opts ...forgetap.Option) (forgetap.Client, error) {
	if m.ClientFunc != nil {
		return m.ClientFunc(opts...)
	}
	base := m.SettingsValue.ClientOptions(m.Logger())
	return forgetap.New(append(base, opts...)...)
}

// Logger uses LoggerFunc or returns a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	nop := zerolog.Nop()
	return &nop
}

// OutputFormat returns Format.
func (m *Mock) OutputFormat() string {
	return m.Format
}

// Version returns "test".
func (m *Mock) Version() string { return "test" }

// Commit returns "test".
func (m *Mock) Commit() string { return "test" }

// Date returns "test".
func (m *Mock) Date() string { return "test" }

// BuiltBy returns "test".
func (m *Mock) BuiltBy() string { return "test" }

// Ensure Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)

package logging_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/logging"
)

func TestDefaultLogger(t *testing.T) {
	original := *logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	logging.SetDefault(zerolog.New(buf).Level(zerolog.DebugLevel))

	logging.Info().Msg("info message")
	logging.Err(errors.New("boom")).Msg("failed")

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "boom")
}

func TestOrDefault(t *testing.T) {
	assert.Same(t, logging.Default(), logging.OrDefault(nil))
	l := zerolog.Nop()
	assert.Same(t, &l, logging.OrDefault(&l))
}

func TestContextLogger(t *testing.T) {
	testLogger := logging.NewTestLogger(t)

	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithService(ctx, "CityMapService")
	ctx = logging.WithMethod(ctx, "getEntities")
	ctx = logging.WithURL(ctx, "https://en1.forgeofempires.com/game/json?h=abc")
	ctx = logging.WithExchangeID(ctx, "ex-1")

	logging.FromContext(ctx).Info().Msg("captured")

	assert.True(t, testLogger.ContainsAll("CityMapService", "getEntities", "game/json", "ex-1", "captured"))
	assert.Equal(t, "ex-1", logging.ExchangeID(ctx))
	assert.Equal(t, 1, testLogger.Count())
}

func TestContextFallbacks(t *testing.T) {
	//nolint:staticcheck // nil context is part of the contract
	assert.Same(t, logging.Default(), logging.FromContext(nil))
	assert.Same(t, logging.Default(), logging.Ctx(context.Background()))
	assert.Empty(t, logging.ExchangeID(context.Background()))

	ctx := context.Background()
	assert.Equal(t, ctx, logging.WithError(ctx, nil))
}

func TestWithFields(t *testing.T) {
	testLogger := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), testLogger.Logger)
	ctx = logging.WithFields(ctx, map[string]any{
		"entries": 3,
		"gzip":    false,
		"ratio":   0.5,
	})
	ctx = logging.WithError(ctx, errors.New("decode failed"))
	logging.Ctx(ctx).Warn().Msg("partial batch")

	out := testLogger.Output()
	assert.Contains(t, out, `"entries":3`)
	assert.Contains(t, out, `"gzip":false`)
	assert.Contains(t, out, "decode failed")
}

func TestNewLoggerFromConfig(t *testing.T) {
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(originalLevel) })

	t.Run("defaults", func(t *testing.T) {
		cfg := logging.DefaultConfig()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "auto", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
		assert.False(t, cfg.AddCaller)
	})

	t.Run("file output with fields", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forgetap.log")
		logger := logging.NewLoggerFromConfig(&logging.Config{
			Level:  "debug",
			Format: "json",
			Output: path,
			Fields: map[string]any{"component": "proxy"},
		})
		logger.Debug().Msg("listening")

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "listening")
		assert.Contains(t, string(content), `"component":"proxy"`)
	})

	t.Run("level parsing", func(t *testing.T) {
		tests := []struct {
			in   string
			want zerolog.Level
		}{
			{"warning", zerolog.WarnLevel},
			{"off", zerolog.Disabled},
			{"ERROR", zerolog.ErrorLevel},
			{"bogus", zerolog.InfoLevel},
		}
		for _, tt := range tests {
			logger := logging.NewLoggerFromConfig(&logging.Config{Level: tt.in, Output: "discard"})
			assert.Equal(t, tt.want, logger.GetLevel(), tt.in)
		}
	})
}

func TestConfigureFromEnv(t *testing.T) {
	original := *logging.Default()
	originalLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		logging.SetDefault(original)
		zerolog.SetGlobalLevel(originalLevel)
	})

	path := filepath.Join(t.TempDir(), "env.log")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", path)
	t.Setenv("LOG_FIELDS", "app=forgetap, env = test")

	logging.ConfigureFromEnv()
	logging.Info().Msg("hidden")
	logging.Warn().Msg("shown")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(content)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"env":"test"`)
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(out), "\n")+1)
}

func TestCaptureLoggingForTest(t *testing.T) {
	captured := logging.CaptureLoggingForTest(t)
	logging.Info().Str("service", "StartupService").Msg("bootstrap")
	captured.AssertContains(t, "StartupService")

	captured.Clear()
	assert.Equal(t, 0, captured.Count())
}

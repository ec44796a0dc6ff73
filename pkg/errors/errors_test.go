package errors_test

import (
	"errors"
	"fmt"
	"testing"

	pkgerrors "github.com/agentstation/forgetap/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "entity",
			ID:       "H_BronzeAge_Hut",
		}
		assert.Equal(t, "entity with ID H_BronzeAge_Hut not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("meta type", "city_entities")
		wrapped := errors.Join(errors.New("failed"), base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("upstream", "", "cannot be empty")
		assert.Equal(t, "validation failed for field upstream: cannot be empty", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "bad recording"}
		assert.Equal(t, "validation failed: bad recording", err.Error())
	})
}

func TestHandlerError(t *testing.T) {
	t.Run("returned error", func(t *testing.T) {
		base := errors.New("boom")
		err := pkgerrors.NewHandlerError("response", "CityMapService", "getEntities", base)
		assert.Equal(t, "response CityMapService.getEntities handler failed: boom", err.Error())
		assert.True(t, pkgerrors.IsHandlerError(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("panic", func(t *testing.T) {
		err := &pkgerrors.HandlerError{Namespace: "raw", Panic: "nil map"}
		assert.Equal(t, "raw handler panicked: nil map", err.Error())
		assert.Nil(t, errors.Unwrap(err))
	})

	t.Run("wrap nil", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapHandler("meta", "", "", nil))
	})
}

func TestProxyError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		unavailable bool
	}{
		{"transport failure", 0, true},
		{"bad gateway", 502, true},
		{"not found", 404, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewProxyError("https://en0.forgeofempires.com", tt.status, "failed")
			assert.Equal(t, tt.unavailable, pkgerrors.IsUpstreamUnavailable(err))
			assert.Contains(t, err.Error(), "forgeofempires")
		})
	}

	t.Run("wrap", func(t *testing.T) {
		base := errors.New("connection refused")
		err := pkgerrors.WrapProxy("http://localhost:1", 0, base)
		require.Error(t, err)
		assert.ErrorIs(t, err, base)
		assert.True(t, pkgerrors.IsUpstreamUnavailable(err))
	})
}

func TestConfigError(t *testing.T) {
	base := errors.New("missing")
	err := pkgerrors.NewConfigError("proxy", "upstream required", base)
	assert.Equal(t, "configuration error in proxy: upstream required", err.Error())
	assert.ErrorIs(t, err, base)

	err = &pkgerrors.ConfigError{Message: "bad"}
	assert.Equal(t, "configuration error: bad", err.Error())
}

func TestParseError(t *testing.T) {
	t.Run("with line", func(t *testing.T) {
		err := &pkgerrors.ParseError{Format: "jsonl", File: "capture.jsonl", Line: 3, Message: "unexpected EOF"}
		assert.Equal(t, "parse error in jsonl at capture.jsonl:3: unexpected EOF", err.Error())
	})

	t.Run("with file", func(t *testing.T) {
		err := pkgerrors.NewParseError("json", "meta.json", "bad token", nil)
		assert.Equal(t, "parse error in json file meta.json: bad token", err.Error())
	})

	t.Run("wrap", func(t *testing.T) {
		base := fmt.Errorf("invalid character")
		err := pkgerrors.WrapParse("json", "", base)
		assert.Equal(t, "json parse error: invalid character", err.Error())
		assert.ErrorIs(t, err, base)
		assert.NoError(t, pkgerrors.WrapParse("json", "", nil))
	})
}

func TestIOError(t *testing.T) {
	base := errors.New("permission denied")
	err := pkgerrors.WrapIO("write", "/tmp/meta.json", base)
	assert.Equal(t, "IO error during write of /tmp/meta.json: permission denied", err.Error())
	assert.ErrorIs(t, err, base)

	err = pkgerrors.NewIOError("read", "", base)
	assert.Equal(t, "IO error during read: permission denied", err.Error())
	assert.NoError(t, pkgerrors.WrapIO("read", "", nil))
}

func TestTimeoutError(t *testing.T) {
	err := pkgerrors.NewTimeoutError("shutdown", "5s", "server did not stop")
	assert.Equal(t, "operation shutdown timed out after 5s: server did not stop", err.Error())
	assert.True(t, pkgerrors.IsTimeout(err))
	assert.False(t, pkgerrors.IsCanceled(err))
}

func TestWrapValidation(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapValidation("listen", nil))
	err := pkgerrors.WrapValidation("listen", errors.New("missing port"))
	assert.True(t, pkgerrors.IsValidationError(err))
}

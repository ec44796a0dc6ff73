package batch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/forgetap/pkg/batch"
)

func names(entries []batch.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestIsGzip(t *testing.T) {
	assert.True(t, batch.IsGzip([]byte{0x1f, 0x8b, 0x08, 0x00}))
	assert.False(t, batch.IsGzip([]byte{0x1f, 0x8b}))
	assert.False(t, batch.IsGzip([]byte(`[{}]`)))
	assert.False(t, batch.IsGzip(nil))
}

func TestDecodeOutgoing(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want []string
	}{
		{
			name: "valid batch",
			raw:  []byte(`[{"requestClass":"CityMapService","requestMethod":"getEntities","requestId":3}]`),
			want: []string{"CityMapService.getEntities"},
		},
		{
			name: "skips invalid elements",
			raw:  []byte(`[{"requestClass":"A","requestMethod":""},1,null,{"requestMethod":"x"},{"requestClass":"B","requestMethod":"y"}]`),
			want: []string{"B.y"},
		},
		{
			name: "gzip short-circuit",
			raw:  []byte{0x1f, 0x8b, 0x08, '[', ']'},
			want: nil,
		},
		{
			name: "not an array",
			raw:  []byte(`{"requestClass":"A","requestMethod":"b"}`),
			want: nil,
		},
		{
			name: "malformed",
			raw:  []byte(`[{`),
			want: nil,
		},
		{
			name: "empty",
			raw:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := batch.DecodeOutgoing(tt.raw)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestDecodeIncoming(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		entries, ok := batch.DecodeIncoming([]byte(`[{"requestClass":"A","requestMethod":"b","responseData":[{"id":"5"}]},"junk"]`))
		require.True(t, ok)
		require.Len(t, entries, 1)
		assert.Equal(t, []any{map[string]any{"id": "5"}}, entries[0].ResponseData())
	})

	t.Run("object is present but empty", func(t *testing.T) {
		entries, ok := batch.DecodeIncoming([]byte(`{"error":"nope"}`))
		assert.True(t, ok)
		assert.Empty(t, entries)
	})

	t.Run("parse failure", func(t *testing.T) {
		entries, ok := batch.DecodeIncoming([]byte(`<html>`))
		assert.False(t, ok)
		assert.Nil(t, entries)
	})
}

func TestOrder(t *testing.T) {
	entries := []batch.Entry{
		{"requestClass": "X", "requestMethod": "x"},
		{"requestClass": "StartupService", "requestMethod": "getData"},
		{"requestClass": "StaticDataService", "requestMethod": "getMetadata"},
		{"requestClass": "Y", "requestMethod": "y"},
	}

	got := batch.Order(entries)
	assert.Equal(t, []string{
		"StaticDataService.getMetadata",
		"StartupService.getData",
		"X.x",
		"Y.y",
	}, names(got))
	assert.Len(t, entries, 4)
	assert.Equal(t, "X.x", entries[0].Name())
}

func TestCorrelate(t *testing.T) {
	outgoing := []batch.Entry{
		{"requestClass": "A", "requestMethod": "a", "requestId": float64(7)},
		{"requestClass": "B", "requestMethod": "b", "requestId": float64(9)},
	}

	t.Run("filters by requestId", func(t *testing.T) {
		got := batch.Correlate(batch.Entry{"requestId": float64(7)}, outgoing)
		require.Len(t, got, 1)
		assert.Equal(t, "A.a", got[0].Name())
	})

	t.Run("no match", func(t *testing.T) {
		got := batch.Correlate(batch.Entry{"requestId": float64(8)}, outgoing)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	})

	t.Run("number never equals string", func(t *testing.T) {
		got := batch.Correlate(batch.Entry{"requestId": "7"}, outgoing)
		assert.Empty(t, got)
	})

	t.Run("entry without requestId", func(t *testing.T) {
		got := batch.Correlate(batch.Entry{"requestId": float64(0)}, outgoing)
		assert.Equal(t, outgoing, got)
	})

	t.Run("outgoing without requestIds", func(t *testing.T) {
		plain := []batch.Entry{{"requestClass": "A", "requestMethod": "a"}}
		got := batch.Correlate(batch.Entry{"requestId": float64(7)}, plain)
		assert.Equal(t, plain, got)
	})

	t.Run("no outgoing batch", func(t *testing.T) {
		assert.Nil(t, batch.Correlate(batch.Entry{"requestId": float64(7)}, nil))
	})
}

func TestFromPush(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		v, ok := batch.Parse([]byte(`[{"requestClass":"A","requestMethod":"a"},{"requestClass":"B","requestMethod":"b"}]`))
		require.True(t, ok)
		assert.Equal(t, []string{"A.a", "B.b"}, names(batch.FromPush(v)))
	})

	t.Run("server response", func(t *testing.T) {
		v, ok := batch.Parse([]byte(`{"__class__":"ServerResponse","requestClass":"CityMapService","requestMethod":"updateEntity"}`))
		require.True(t, ok)
		assert.Equal(t, []string{"CityMapService.updateEntity"}, names(batch.FromPush(v)))
	})

	t.Run("other object", func(t *testing.T) {
		v, ok := batch.Parse([]byte(`{"__class__":"Chat"}`))
		require.True(t, ok)
		assert.Empty(t, batch.FromPush(v))
	})

	t.Run("scalar", func(t *testing.T) {
		assert.Empty(t, batch.FromPush("PONG"))
	})
}

func TestTruthy(t *testing.T) {
	assert.False(t, batch.Truthy(nil))
	assert.False(t, batch.Truthy(false))
	assert.False(t, batch.Truthy(float64(0)))
	assert.False(t, batch.Truthy(""))
	assert.True(t, batch.Truthy("0"))
	assert.True(t, batch.Truthy(float64(-1)))
	assert.True(t, batch.Truthy([]any{}))
	assert.True(t, batch.Truthy(map[string]any{}))
}

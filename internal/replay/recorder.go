// Package replay records intercepted traffic as JSON lines and feeds a
// recording back through the interception pipeline.
package replay

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/agentstation/utc"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/correlation"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
	"github.com/agentstation/forgetap/pkg/logging"
)

// Line kinds.
const (
	KindHTTP      = "http"
	KindWebSocket = "ws"
)

// Line is one recorded event.
type Line struct {
	Kind     string          `json:"kind"`
	At       utc.Time        `json:"at"`
	Method   string          `json:"method,omitempty"`
	URL      string          `json:"url,omitempty"`
	Status   int             `json:"status,omitempty"`
	Request  string          `json:"request,omitempty"`
	Response string          `json:"response,omitempty"`
	Frame    json.RawMessage `json:"frame,omitempty"`
}

// Recorder appends observed exchanges and WebSocket frames to a writer,
// one JSON document per line.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	count  int
	logger *zerolog.Logger
}

// NewRecorder records to w.
func NewRecorder(w io.Writer, logger *zerolog.Logger) *Recorder {
	return &Recorder{w: bufio.NewWriter(w), logger: logging.OrDefault(logger)}
}

// Create records to path, appending when the file exists.
func Create(path string, logger *zerolog.Logger) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	r := NewRecorder(f, logger)
	r.closer = f
	return r, nil
}

// Attach registers the recorder as a raw and WebSocket raw handler.
func (r *Recorder) Attach(ic *interceptor.Interceptor) {
	ic.AddRawHandler(r.recordExchange)
	ic.AddWsRawHandler(r.recordFrame)
}

func (r *Recorder) recordExchange(ex *interceptor.Exchange, rec *correlation.Record) error {
	line := Line{
		Kind:     KindHTTP,
		At:       ex.CompletedAt,
		URL:      ex.TargetURL(),
		Status:   ex.StatusCode,
		Request:  string(ex.OutgoingBody()),
		Response: ex.ResponseText(),
	}
	if rec != nil {
		line.Method = rec.Method
	}
	if line.At.IsZero() {
		line.At = utc.Now()
	}
	return r.Write(line)
}

func (r *Recorder) recordFrame(payload any) error {
	frame, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}
	return r.Write(Line{Kind: KindWebSocket, At: utc.Now(), Frame: frame})
}

// Write appends a line and flushes it.
func (r *Recorder) Write(line Line) error {
	data, err := json.Marshal(line)
	if err != nil {
		return errors.WrapParse("json", "", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(append(data, '\n')); err != nil {
		return errors.WrapIO("write", "recording", err)
	}
	if err := r.w.Flush(); err != nil {
		return errors.WrapIO("write", "recording", err)
	}
	r.count++
	return nil
}

// Count returns the number of lines written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and closes the underlying file, if any.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.w.Flush(); err != nil {
		return errors.WrapIO("write", "recording", err)
	}
	if r.closer != nil {
		if err := r.closer.Close(); err != nil {
			return errors.WrapIO("close", "recording", err)
		}
		r.closer = nil
	}
	r.logger.Debug().Int("lines", r.count).Msg("Recording closed")
	return nil
}

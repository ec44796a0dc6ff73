package replay

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/errors"
	"github.com/agentstation/forgetap/pkg/interceptor"
	"github.com/agentstation/forgetap/pkg/logging"
	"github.com/agentstation/forgetap/pkg/transport"
)

// Result summarizes a replay run.
type Result struct {
	Exchanges int `json:"exchanges" yaml:"exchanges"`
	Frames    int `json:"frames" yaml:"frames"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// Replayer feeds recorded lines through an interceptor. HTTP lines go
// through the intercepting transport backed by an in-memory round tripper
// that serves the recorded response, so the pipeline runs exactly as it
// does for live traffic.
type Replayer struct {
	ic     *interceptor.Interceptor
	client *http.Client
	base   *recorded
	logger *zerolog.Logger
}

// MaxLineBytes is the longest recording line Replay accepts. A line holds
// a request and a response body, each up to MaxInspectBytes and up to six
// bytes per byte once escaped, plus a little metadata.
const MaxLineBytes = 12*constants.MaxInspectBytes + 64<<10

// NewReplayer creates a Replayer delivering to ic.
func NewReplayer(ic *interceptor.Interceptor, logger *zerolog.Logger) *Replayer {
	logger = logging.OrDefault(logger)
	base := &recorded{}
	return &Replayer{
		ic:     ic,
		base:   base,
		client: &http.Client{Transport: transport.Wrap(base, ic, transport.WithLogger(logger))},
		logger: logger,
	}
}

// ReplayFile replays the recording at path.
func (r *Replayer) ReplayFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()
	return r.Replay(ctx, f)
}

// Replay reads lines from src and replays them in order. Blank lines are
// ignored; a malformed line stops the run with a ParseError naming it.
func (r *Replayer) Replay(ctx context.Context, src io.Reader) (Result, error) {
	var res Result
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)

	n := 0
	for scanner.Scan() {
		n++
		if err := ctx.Err(); err != nil {
			return res, err
		}
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}

		var line Line
		if err := json.Unmarshal(text, &line); err != nil {
			return res, &errors.ParseError{Format: "jsonl", Line: n, Message: err.Error(), Err: err}
		}

		switch line.Kind {
		case KindHTTP:
			if err := r.replayExchange(ctx, line); err != nil {
				return res, err
			}
			res.Exchanges++
		case KindWebSocket:
			r.ic.HandleWebSocketMessage(line.Frame)
			res.Frames++
		default:
			r.logger.Warn().Int("line", n).Str("kind", line.Kind).Msg("Skipping unknown recording line")
			res.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return res, errors.WrapIO("read", "recording", err)
	}

	r.logger.Info().
		Int("exchanges", res.Exchanges).
		Int("frames", res.Frames).
		Int("skipped", res.Skipped).
		Msg("Replay complete")
	return res, nil
}

func (r *Replayer) replayExchange(ctx context.Context, line Line) error {
	method := line.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if line.Request != "" {
		body = strings.NewReader(line.Request)
	}
	req, err := http.NewRequestWithContext(ctx, method, line.URL, body)
	if err != nil {
		return errors.WrapValidation("url", err)
	}

	r.base.set(line)
	resp, err := r.client.Do(req)
	if err != nil {
		return errors.WrapProxy(line.URL, 0, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// recorded serves the response of the line being replayed.
type recorded struct {
	mu   sync.Mutex
	line Line
}

func (rt *recorded) set(line Line) {
	rt.mu.Lock()
	rt.line = line
	rt.mu.Unlock()
}

func (rt *recorded) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	line := rt.line
	rt.mu.Unlock()

	if req.Body != nil {
		_, _ = io.Copy(io.Discard, req.Body)
		_ = req.Body.Close()
	}

	status := line.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Status:        http.StatusText(status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(line.Response)),
		ContentLength: int64(len(line.Response)),
		Request:       req,
	}, nil
}

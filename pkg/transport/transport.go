// Package transport wraps the Go transports that carry game traffic so the
// interceptor sees every call.
//
// RoundTripper decorates an http.RoundTripper: it records method, URL and
// body of each outgoing request, runs pre-flight dispatch, forwards the call
// unchanged, and hands the completed exchange to the interceptor. Bytes seen
// by the caller are identical to what the base transport returned. Conn
// decorates a gorilla/websocket connection the same way for WebSocket frames.
package transport

import (
	"bytes"
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/forgetap/pkg/constants"
	"github.com/agentstation/forgetap/pkg/correlation"
	"github.com/agentstation/forgetap/pkg/interceptor"
	"github.com/agentstation/forgetap/pkg/logging"
)

// RoundTripper is an intercepting http.RoundTripper.
type RoundTripper struct {
	base       http.RoundTripper
	ic         *interceptor.Interceptor
	records    *correlation.Store[http.Request]
	maxInspect int64
	logger     *zerolog.Logger
}

// Option configures a RoundTripper.
type Option func(*RoundTripper)

// WithMaxInspectBytes sets the largest body that is buffered for
// inspection. Larger bodies stream through untouched and are not
// dispatched.
func WithMaxInspectBytes(n int64) Option {
	return func(rt *RoundTripper) {
		if n > 0 {
			rt.maxInspect = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(rt *RoundTripper) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// Wrap returns base decorated with interception. A nil base means
// http.DefaultTransport. Wrapping a RoundTripper returns it unchanged.
func Wrap(base http.RoundTripper, ic *interceptor.Interceptor, opts ...Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if rt, ok := base.(*RoundTripper); ok {
		return rt
	}
	rt := &RoundTripper{
		base:       base,
		ic:         ic,
		records:    correlation.NewStore[http.Request](),
		maxInspect: constants.MaxInspectBytes,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Install wraps client's transport in place. It reports false when the
// client was already wrapped.
func Install(client *http.Client, ic *interceptor.Interceptor, opts ...Option) bool {
	if _, ok := client.Transport.(*RoundTripper); ok {
		return false
	}
	client.Transport = Wrap(client.Transport, ic, opts...)
	return true
}

var defaultMu sync.Mutex

// InstallDefault wraps http.DefaultTransport for the whole process. Only the
// first call has an effect; later calls report false.
func InstallDefault(ic *interceptor.Interceptor, opts ...Option) bool {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if _, ok := http.DefaultTransport.(*RoundTripper); ok {
		return false
	}
	http.DefaultTransport = Wrap(http.DefaultTransport, ic, opts...)
	return true
}

// Base returns the wrapped transport.
func (rt *RoundTripper) Base() http.RoundTripper {
	return rt.base
}

// Interceptor returns the interceptor events are delivered to.
func (rt *RoundTripper) Interceptor() *interceptor.Interceptor {
	return rt.ic
}

// Pending returns the number of calls currently in flight.
func (rt *RoundTripper) Pending() int {
	return rt.records.Len()
}

// RoundTrip implements http.RoundTripper.
func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.ic.Enabled() {
		return rt.base.RoundTrip(req)
	}

	rec := rt.records.Associate(req)
	defer rt.records.Release(req)

	rec.Method = req.Method
	rec.URL = req.URL.String()
	started := utc.Now()

	out, inspect := rt.captureRequest(req, rec)
	if inspect {
		rt.ic.HandleSend(rec)
	}

	resp, err := rt.base.RoundTrip(out)
	if err != nil || resp == nil {
		return resp, err
	}

	body, ok := rt.captureResponse(resp)
	if !ok {
		return resp, nil
	}

	responseURL := rec.URL
	if resp.Request != nil && resp.Request.URL != nil {
		responseURL = resp.Request.URL.String()
	}

	rt.ic.HandleLoad(&interceptor.Exchange{
		ID:          uuid.NewString(),
		Record:      rec,
		Request:     req,
		Response:    resp,
		URL:         responseURL,
		StatusCode:  resp.StatusCode,
		Body:        body,
		StartedAt:   started,
		CompletedAt: utc.Now(),
	})
	return resp, nil
}

// captureRequest buffers the request body into rec and returns the request
// to forward. The original request is never modified.
func (rt *RoundTripper) captureRequest(req *http.Request, rec *correlation.Record) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.ContentLength > rt.maxInspect {
		return req, false
	}

	prefix, err := io.ReadAll(io.LimitReader(req.Body, rt.maxInspect+1))
	out := req.Clone(req.Context())
	if err != nil || int64(len(prefix)) > rt.maxInspect {
		// replay what was read, then the rest of the original stream
		out.Body = &joinedBody{Reader: io.MultiReader(bytes.NewReader(prefix), req.Body), closer: req.Body}
		return out, false
	}
	_ = req.Body.Close()

	rec.SetBody(prefix)
	out.Body = io.NopCloser(bytes.NewReader(prefix))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(prefix)), nil
	}
	out.ContentLength = int64(len(prefix))
	return out, true
}

// captureResponse buffers resp.Body, restores it byte for byte, and returns
// the decoded copy used for inspection.
func (rt *RoundTripper) captureResponse(resp *http.Response) ([]byte, bool) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, true
	}
	if isStream(resp.Header.Get("Content-Type")) || resp.ContentLength > rt.maxInspect {
		return nil, false
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, rt.maxInspect+1))
	if err != nil || int64(len(raw)) > rt.maxInspect {
		resp.Body = &joinedBody{Reader: io.MultiReader(bytes.NewReader(raw), resp.Body), closer: resp.Body}
		if err != nil {
			rt.logger.Debug().Err(err).Msg("Response body read failed; skipping inspection")
		}
		return nil, false
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		decoded, err := gunzip(raw, rt.maxInspect)
		if err != nil {
			rt.logger.Debug().Err(err).Msg("Gzip response could not be decoded")
			return nil, true
		}
		if int64(len(decoded)) > rt.maxInspect {
			rt.logger.Debug().Int64("limit", rt.maxInspect).Msg("Decoded response exceeds inspection limit; skipping inspection")
			return nil, false
		}
		return decoded, true
	}
	return raw, true
}

// gunzip inflates raw, stopping one byte past limit.
func gunzip(raw []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, limit+1))
}

func isStream(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/event-stream"
}

// joinedBody reads a buffered prefix followed by the rest of the original
// body, and closes the original.
type joinedBody struct {
	io.Reader
	closer io.Closer
}

func (b *joinedBody) Close() error {
	return b.closer.Close()
}

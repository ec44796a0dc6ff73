package interceptor

import (
	"net/http"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/agentstation/forgetap/pkg/correlation"
)

// Exchange is one completed HTTP call as seen by handlers.
//
// Body holds the response body after any Content-Encoding was removed.
// Request and Response are nil for exchanges rebuilt from a recording.
type Exchange struct {
	ID          string
	Record      *correlation.Record
	Request     *http.Request
	Response    *http.Response
	URL         string
	StatusCode  int
	Body        []byte
	StartedAt   utc.Time
	CompletedAt utc.Time
}

// NewExchange builds an exchange from plain values. url is used both as the
// request URL and the response URL.
func NewExchange(method, url string, outgoing, response []byte) *Exchange {
	rec := &correlation.Record{Method: method, URL: url}
	rec.SetBody(outgoing)
	now := utc.Now()
	return &Exchange{
		ID:          uuid.NewString(),
		Record:      rec,
		URL:         url,
		StatusCode:  http.StatusOK,
		Body:        response,
		StartedAt:   now,
		CompletedAt: now,
	}
}

// TargetURL returns the URL the call was opened with, falling back to the
// response URL.
func (ex *Exchange) TargetURL() string {
	if ex.Record != nil && ex.Record.URL != "" {
		return ex.Record.URL
	}
	return ex.URL
}

// ResponseURL returns the final response URL, falling back to the target URL.
func (ex *Exchange) ResponseURL() string {
	if ex.URL != "" {
		return ex.URL
	}
	return ex.TargetURL()
}

// OutgoingBody returns the recorded request body, or nil.
func (ex *Exchange) OutgoingBody() []byte {
	if ex.Record == nil {
		return nil
	}
	return ex.Record.Body
}

// ResponseText returns Body as a string.
func (ex *Exchange) ResponseText() string {
	return string(ex.Body)
}

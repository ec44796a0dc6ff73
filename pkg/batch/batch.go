// Package batch decodes the game's JSON-RPC-like batches.
//
// The game posts an array of calls to its game/json endpoint and receives an
// array of results. Every element names the service and method that produced
// it through the requestClass and requestMethod fields; results may carry the
// requestId of the call that caused them. WebSocket pushes use the same entry
// shape, either as an array or as a single object whose __class__ is
// "ServerResponse".
//
// Nothing in this package returns decode errors. Traffic that cannot be
// understood is reported as "no entries" so the caller can skip it.
package batch

import (
	"math"

	"github.com/goccy/go-json"

	"github.com/agentstation/forgetap/pkg/constants"
)

// Entry is one element of a decoded batch. The full JSON object is kept so
// handlers can read any field the game sends.
type Entry map[string]any

// Class returns the requestClass field, or "" when absent or not a string.
func (e Entry) Class() string {
	s, _ := e[constants.FieldRequestClass].(string)
	return s
}

// Method returns the requestMethod field, or "" when absent or not a string.
func (e Entry) Method() string {
	s, _ := e[constants.FieldRequestMethod].(string)
	return s
}

// Name returns "<class>.<method>", the form recorded in history.
func (e Entry) Name() string {
	return e.Class() + "." + e.Method()
}

// RequestID returns the raw requestId value.
func (e Entry) RequestID() any {
	return e[constants.FieldRequestID]
}

// HasRequestID reports whether the entry carries a truthy requestId.
func (e Entry) HasRequestID() bool {
	return Truthy(e.RequestID())
}

// ResponseData returns the responseData field.
func (e Entry) ResponseData() any {
	return e[constants.FieldResponseData]
}

// Valid reports whether both requestClass and requestMethod are non-empty.
func (e Entry) Valid() bool {
	return e.Class() != "" && e.Method() != ""
}

// Is reports whether the entry was produced by service.method.
func (e Entry) Is(service, method string) bool {
	return e.Class() == service && e.Method() == method
}

// IsGzip reports whether b starts with the gzip magic sequence 1F 8B 08.
func IsGzip(b []byte) bool {
	return len(b) >= 3 && b[0] == 0x1f && b[1] == 0x8b && b[2] == 0x08
}

// Parse decodes arbitrary JSON. ok is false when data is not valid JSON.
func Parse(data []byte) (v any, ok bool) {
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

// DecodeOutgoing decodes a request body into its valid entries.
//
// Gzip-compressed bodies are not inflated and yield nil, as do bodies that
// are not a JSON array. Elements without a requestClass and requestMethod
// are skipped.
func DecodeOutgoing(raw []byte) []Entry {
	if len(raw) == 0 || IsGzip(raw) {
		return nil
	}
	v, ok := Parse(raw)
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if e := Entry(obj); e.Valid() {
			entries = append(entries, e)
		}
	}
	return entries
}

// DecodeIncoming decodes a response body into its object entries.
//
// ok is false when text is not valid JSON. A valid document that is not an
// array is present but empty: it returns a nil slice with ok set.
func DecodeIncoming(text []byte) (entries []Entry, ok bool) {
	v, ok := Parse(text)
	if !ok {
		return nil, false
	}
	return objects(v), true
}

// FromPush classifies a parsed WebSocket payload. Arrays yield each object
// element; a lone object yields itself only when tagged as a ServerResponse.
func FromPush(v any) []Entry {
	switch t := v.(type) {
	case []any:
		return objects(t)
	case map[string]any:
		if class, _ := t[constants.ClassField].(string); class == constants.ServerResponseClass {
			return []Entry{Entry(t)}
		}
	}
	return nil
}

func objects(v any) []Entry {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			entries = append(entries, Entry(obj))
		}
	}
	return entries
}

// Order returns entries in bootstrap order: StaticDataService.getMetadata
// first, then StartupService.getData, then everything else. Relative order
// inside each group is preserved.
func Order(entries []Entry) []Entry {
	ordered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Is(constants.MetadataService, constants.MetadataMethod) {
			ordered = append(ordered, e)
		}
	}
	for _, e := range entries {
		if e.Is(constants.StartupService, constants.StartupMethod) {
			ordered = append(ordered, e)
		}
	}
	for _, e := range entries {
		if !e.Is(constants.MetadataService, constants.MetadataMethod) &&
			!e.Is(constants.StartupService, constants.StartupMethod) {
			ordered = append(ordered, e)
		}
	}
	return ordered
}

// Correlate returns the outgoing entries that caused entry.
//
// When entry has no truthy requestId, or no outgoing entry carries one, the
// whole outgoing batch is returned unfiltered.
func Correlate(entry Entry, outgoing []Entry) []Entry {
	if outgoing == nil || !entry.HasRequestID() || !anyRequestID(outgoing) {
		return outgoing
	}
	id := entry.RequestID()
	matched := make([]Entry, 0, 1)
	for _, o := range outgoing {
		if o.HasRequestID() && sameID(o.RequestID(), id) {
			matched = append(matched, o)
		}
	}
	return matched
}

func anyRequestID(entries []Entry) bool {
	for _, e := range entries {
		if e.HasRequestID() {
			return true
		}
	}
	return false
}

// sameID compares two scalar JSON values strictly: a number never equals a
// string.
func sameID(a, b any) bool {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}

// Truthy applies JavaScript truthiness to a decoded JSON value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0 && !math.IsNaN(t)
	case string:
		return t != ""
	default:
		return true
	}
}

// Package event normalizes the loosely typed payloads emitted by the research
// pipeline into a canonical Event.
//
// The producer does not commit to a fixed envelope. A stage payload may be
// nested one level under a stage name ({"search": {"search_results": [...]}})
// or sit at the top level ({"search_results": [...]}), and a single streamed
// summary may arrive as a string or as an object. Normalize probes for each
// shape independently and never fails: an unrecognized payload simply yields
// an empty Event.
package event

import (
	"bytes"
	"encoding/json"
)

// Keys recognized in a producer payload.
const (
	KeyFocusedSummary = "custom_summary"
	KeyError          = "error"

	KeySearchResults = "search_results"
	KeyContents      = "contents"
	KeySummaries     = "summaries"
	KeyReport        = "report"
	KeyMessage       = "message"
)

// stageKeys are the nesting keys, in lookup order.
var stageKeys = []string{"search", "extract", "summarize", "report"}

// Stage is the bulk pipeline output carried by an event. A nil slice or
// pointer means the field was absent; an empty non-nil slice means the
// producer sent an empty list.
type Stage struct {
	SearchResults []json.RawMessage
	Contents      []json.RawMessage
	Summaries     []json.RawMessage
	Report        *string
	Message       string
}

// Empty reports whether the stage carries nothing at all.
func (s Stage) Empty() bool {
	return s.SearchResults == nil &&
		s.Contents == nil &&
		s.Summaries == nil &&
		s.Report == nil &&
		s.Message == ""
}

// Event is the canonical form of one frame.
type Event struct {
	// Focused is the single streamed summary in string form, or "" when the
	// event carries none.
	Focused string

	// Stage is the stage payload, possibly empty.
	Stage Stage

	// Error is an explicit failure reported by the producer.
	Error string
}

// HasFocused reports whether the event carries a focused summary payload.
func (e Event) HasFocused() bool {
	return e.Focused != ""
}

// Empty reports whether normalization found nothing to act on.
func (e Event) Empty() bool {
	return !e.HasFocused() && e.Stage.Empty() && e.Error == ""
}

// Normalize extracts an Event from a raw JSON payload. Payloads that are not
// JSON objects produce an empty Event.
func Normalize(raw []byte) Event {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return Event{}
	}

	ev := Event{
		Focused: focused(top[KeyFocusedSummary]),
		Error:   text(top[KeyError]),
	}

	stage := top
	if nested, ok := unwrap(top); ok {
		stage = nested
	}
	ev.Stage = Stage{
		SearchResults: list(stage[KeySearchResults]),
		Contents:      list(stage[KeyContents]),
		Summaries:     list(stage[KeySummaries]),
		Report:        report(stage[KeyReport]),
		Message:       text(stage[KeyMessage]),
	}

	return ev
}

// unwrap returns the object nested under the first stage key holding one.
// A stage key whose value is not an object (e.g. a top-level "report"
// string) is not an envelope.
func unwrap(top map[string]json.RawMessage) (map[string]json.RawMessage, bool) {
	for _, key := range stageKeys {
		raw, ok := top[key]
		if !ok {
			continue
		}

		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
			continue
		}
		return nested, true
	}
	return nil, false
}

// focused coerces a focused summary to its string form. Strings are taken
// as is; any other non-null value is compacted to its JSON text.
func focused(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

// list returns the elements of a JSON array, or nil when raw is absent or
// not an array.
func list(raw json.RawMessage) []json.RawMessage {
	if isNull(raw) {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items
}

// report returns a non-empty report string, or nil.
func report(raw json.RawMessage) *string {
	s := text(raw)
	if s == "" {
		return nil
	}
	return &s
}

// text returns raw as a string when it is a JSON string, otherwise "".
func text(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

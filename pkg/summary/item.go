// Package summary holds the summary items streamed by the pipeline and the
// accumulator that keeps them in arrival order for a session.
package summary

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Item is one summarized source.
type Item struct {
	Title string `json:"title"`

	// Summary holds the bullet points. It is nil when the producer sent
	// something other than a list.
	Summary []string `json:"summary,omitempty"`

	Source    string `json:"source"`
	Date      string `json:"date,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// UnmarshalJSON decodes an item leniently: scalar fields of the wrong type
// are kept as their JSON text, and a non-list summary is dropped.
func (i *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*i = Item{
		Title:     loose(fields["title"]),
		Summary:   bullets(fields["summary"]),
		Source:    loose(fields["source"]),
		Date:      loose(fields["date"]),
		Thumbnail: loose(fields["thumbnail"]),
	}
	return nil
}

// Parse interprets candidate as an Item. The check is intentionally light:
// the text must mention both a title and a source and decode as a JSON
// object. Markdown code fences around the JSON are tolerated.
func Parse(candidate string) (*Item, bool) {
	text := stripFences(strings.TrimSpace(candidate))
	if !looksLikeItem(text) {
		return nil, false
	}

	var item Item
	if err := json.Unmarshal([]byte(text), &item); err != nil {
		return nil, false
	}
	return &item, true
}

// ParseRaw interprets one element of an authoritative summaries list, which
// may be a JSON string holding an item or an item object.
func ParseRaw(raw json.RawMessage) (*Item, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Parse(s)
	}
	return Parse(string(raw))
}

func looksLikeItem(text string) bool {
	return strings.Contains(text, "title") && strings.Contains(text, "source")
}

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")
	text = strings.TrimPrefix(text, "json")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func loose(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}

func bullets(raw json.RawMessage) []string {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || elems == nil {
		return nil
	}

	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, loose(e))
	}
	return out
}

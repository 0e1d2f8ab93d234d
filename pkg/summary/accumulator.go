package summary

import (
	"encoding/json"
	"slices"
)

// Accumulator keeps a session's summary items in arrival order. Items are
// appended one at a time as the pipeline streams them and may be replaced
// wholesale by the producer's final, authoritative list.
//
// The collection is never reordered or deduplicated by content.
type Accumulator struct {
	items []Item
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Append parses candidate and appends it when it has the shape of an Item.
// On a shape mismatch the collection is left unchanged and Append returns
// nil, false.
func (a *Accumulator) Append(candidate string) (*Item, bool) {
	item, ok := Parse(candidate)
	if !ok {
		return nil, false
	}

	a.items = append(a.items, *item)
	return item, true
}

// Replace swaps the whole collection for the parsed elements of list.
// Elements that do not parse are skipped. It returns the number of items
// kept.
func (a *Accumulator) Replace(list []json.RawMessage) int {
	items := make([]Item, 0, len(list))
	for _, raw := range list {
		if item, ok := ParseRaw(raw); ok {
			items = append(items, *item)
		}
	}

	a.items = items
	return len(items)
}

// Items returns a copy of the collection.
func (a *Accumulator) Items() []Item {
	return slices.Clone(a.items)
}

// Len returns the number of items collected.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// Reset empties the collection.
func (a *Accumulator) Reset() {
	a.items = nil
}

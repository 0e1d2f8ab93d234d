// Package sse provides a minimal, purpose-built decoder for the research
// pipeline's server-sent event stream. It turns raw transport chunks into
// "data:" frames, optionally teeing the raw bytes to a capture writer so a
// session can be replayed later.
//
// Only the subset of the SSE format the pipeline emits is understood: records
// separated by a blank line whose payload line starts with "data: ". Other
// fields ("event:", "id:", comments) are ignored.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

const (
	// recordSeparator delimits records in the stream.
	recordSeparator = "\n\n"

	// dataPrefix is the field prefix carrying a frame payload.
	dataPrefix = "data: "

	// DoneSentinel is the payload the producer sends to mark normal end of
	// stream.
	DoneSentinel = "[DONE]"
)

// Frame is a single decoded "data:" payload. Frames that reach the caller
// always hold syntactically valid JSON.
type Frame struct {
	// Data is the payload with the "data: " prefix stripped.
	Data string
}

// Bytes returns the frame payload as a byte slice.
func (f *Frame) Bytes() []byte {
	return []byte(f.Data)
}

package sse

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/utils"
)

const defaultChunkSize = 4 * 1024

// Decoder reads frames from a source io.Reader one transport chunk at a time.
//
// ┌──────────────────┐
// │ source io.Reader │──▶ (optional tee io.Writer, raw bytes)
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐
// │  UTF-8 decoding  │  partial runes carried across chunks
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────┐
// │   text buffer    │──▶│ complete records  │──▶ Decoder.Next() *Frame
// └──────────────────┘   └───────────────────┘
//
// A Decoder is owned by a single reader and is not safe for concurrent use.
type Decoder struct {
	src    io.Reader
	closer io.Closer
	text   io.Reader
	chunk  []byte
	logger *slog.Logger

	// buffer holds the trailing, not yet delimited part of the stream.
	buffer string

	// records are complete records split off the buffer but not yet consumed.
	records []string

	// err is a pending transport error, returned once buffered records drain.
	err error

	terminated bool
	exhausted  bool
}

// Option configures a Decoder created with NewDecoder.
type Option func(*Decoder)

// WithTee writes every raw byte read from the source to w before decoding.
func WithTee(w io.Writer) Option {
	return func(d *Decoder) {
		if w != nil {
			d.src = io.TeeReader(d.src, w)
		}
	}
}

// WithLogger sets the logger used to report skipped frames.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithChunkSize overrides the size of each read from the source.
func WithChunkSize(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.chunk = make([]byte, n)
		}
	}
}

// NewDecoder returns a Decoder reading from src. If src is an io.Closer,
// Close releases it.
func NewDecoder(src io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		src:    src,
		chunk:  make([]byte, defaultChunkSize),
		logger: logger.Nop(),
	}
	if c, ok := src.(io.Closer); ok {
		d.closer = c
	}

	for _, opt := range opts {
		opt(d)
	}

	// Invalid byte sequences become U+FFFD, matching a browser TextDecoder.
	d.text = transform.NewReader(d.src, unicode.UTF8.NewDecoder())

	return d
}

// Next returns the next frame holding a valid JSON payload. It blocks until a
// complete record is available or the source ends.
//
// Next returns nil, nil once the stream is over: either the sentinel was
// received or the source reached EOF. Records that are not "data:" records
// and payloads that are not valid JSON are skipped. Any other read error is
// returned as is and the decoder should be discarded.
func (d *Decoder) Next() (*Frame, error) {
	for {
		for len(d.records) > 0 {
			record := d.records[0]
			d.records = d.records[1:]

			payload, ok := strings.CutPrefix(record, dataPrefix)
			if !ok {
				continue
			}

			if payload == DoneSentinel {
				d.terminated = true
				d.discard()
				return nil, nil
			}

			if !json.Valid([]byte(payload)) {
				d.logger.Debug("skipping malformed frame",
					"payload", utils.Truncate(payload, 120),
				)
				continue
			}

			return &Frame{Data: payload}, nil
		}

		if d.err != nil {
			return nil, d.err
		}

		if d.terminated || d.exhausted {
			return nil, nil
		}

		n, err := d.text.Read(d.chunk)
		if n > 0 {
			d.push(string(d.chunk[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Unterminated trailing content is dropped.
				if d.buffer != "" {
					d.logger.Debug("dropping unterminated trailing record",
						"bytes", len(d.buffer),
					)
				}
				d.exhausted = true
				d.buffer = ""
				continue
			}
			d.err = err
		}
	}
}

// Terminated reports whether the stream ended with the sentinel rather than
// a bare transport close.
func (d *Decoder) Terminated() bool {
	return d.terminated
}

// Close releases the underlying source if it is closable. It is safe to call
// more than once.
func (d *Decoder) Close() error {
	d.discard()
	if d.closer == nil {
		return nil
	}
	c := d.closer
	d.closer = nil
	return c.Close()
}

// push appends decoded text to the buffer and splits off complete records.
// Every segment but the last is complete; the last becomes the new buffer.
func (d *Decoder) push(text string) {
	d.buffer += text
	if !strings.Contains(d.buffer, recordSeparator) {
		return
	}

	segments := strings.Split(d.buffer, recordSeparator)
	last := len(segments) - 1
	d.records = append(d.records, segments[:last]...)
	d.buffer = segments[last]
}

// discard drops all buffered state.
func (d *Decoder) discard() {
	d.buffer = ""
	d.records = nil
}

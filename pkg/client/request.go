package client

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultLang is the output language the pipeline writes in.
	DefaultLang = "Korean"

	// DefaultCount is the default target number of summaries.
	DefaultCount = 5

	// MinCount and MaxCount bound Request.Count.
	MinCount = 1
	MaxCount = 20

	// DefaultFormat is the default output format.
	DefaultFormat = "markdown"
)

// Mode selects how the research server delivers results.
type Mode string

const (
	// ModeStream delivers progress as a server-sent event stream.
	ModeStream Mode = "stream"

	// ModeAsync starts a background job that is polled for its result.
	ModeAsync Mode = "async"
)

// ErrEmptyQuery is returned when a request has no query text.
var ErrEmptyQuery = errors.New("research query is empty")

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// Request is the body of POST /research.
type Request struct {
	Query  string `json:"query"`
	Lang   string `json:"lang,omitempty"`
	Format string `json:"format,omitempty"`
	Count  int    `json:"count,omitempty"`
	Mode   Mode   `json:"mode,omitempty"`

	// Optional publication window. Dates are YYYY-MM-DD, times HH:MM:SS.
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// NewRequest returns a request for query with every default filled in.
func NewRequest(query string) Request {
	return Request{
		Query:  query,
		Lang:   DefaultLang,
		Format: DefaultFormat,
		Count:  DefaultCount,
		Mode:   ModeStream,
	}
}

// Validate checks the request before it is sent. Blank optional fields are
// filled with their defaults.
func (r *Request) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}

	if r.Lang == "" {
		r.Lang = DefaultLang
	}
	if r.Format == "" {
		r.Format = DefaultFormat
	}
	if r.Count == 0 {
		r.Count = DefaultCount
	}
	if r.Mode == "" {
		r.Mode = ModeStream
	}

	if r.Count < MinCount || r.Count > MaxCount {
		return fmt.Errorf("count must be between %d and %d, got %d", MinCount, MaxCount, r.Count)
	}
	if r.Mode != ModeStream && r.Mode != ModeAsync {
		return fmt.Errorf("unknown mode %q (want %q or %q)", r.Mode, ModeStream, ModeAsync)
	}

	for name, v := range map[string]string{"start_date": r.StartDate, "end_date": r.EndDate} {
		if v != "" && !datePattern.MatchString(v) {
			return fmt.Errorf("%s must be YYYY-MM-DD, got %q", name, v)
		}
	}
	for name, v := range map[string]string{"start_time": r.StartTime, "end_time": r.EndTime} {
		if v != "" && !timePattern.MatchString(v) {
			return fmt.Errorf("%s must be HH:MM:SS, got %q", name, v)
		}
	}

	return nil
}

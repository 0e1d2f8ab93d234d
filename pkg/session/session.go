// Package session reduces the event stream of one research request into a
// progress status, a trace, and a rendered document.
//
// A Session owns all per-request state. It is driven by a single reader:
// frames are decoded, normalized and applied synchronously in arrival order,
// and the only suspension point is the wait for the next transport chunk.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/dossier/pkg/document"
	"github.com/papercomputeco/dossier/pkg/event"
	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/sse"
	"github.com/papercomputeco/dossier/pkg/summary"
	"github.com/papercomputeco/dossier/pkg/tracelog"
)

// Observer receives a snapshot after every state change.
type Observer func(Snapshot)

// Session is the reducer for one research request. It is not safe for
// concurrent use.
type Session struct {
	id        string
	query     string
	startedAt time.Time

	machine  *progress.Machine
	acc      *summary.Accumulator
	trace    *tracelog.Log
	document string

	reportSeen bool

	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithObserver registers fn to receive snapshots.
func WithObserver(fn Observer) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New starts a session for query.
func New(query string, opts ...Option) *Session {
	s := &Session{
		machine: progress.NewMachine(),
		acc:     summary.NewAccumulator(),
		trace:   tracelog.New(),
		logger:  logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Reset(query)
	return s
}

// Reset discards all state and begins a new request for query.
func (s *Session) Reset(query string) {
	s.id = uuid.NewString()
	s.query = query
	s.startedAt = s.now()
	s.machine.Reset()
	s.acc.Reset()
	s.trace.Reset()
	s.document = ""
	s.reportSeen = false

	s.trace.Append(fmt.Sprintf("Initializing research for: %q", query))
	s.notify()
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current progress status.
func (s *Session) Status() progress.Status {
	return s.machine.Status()
}

// ReportSeen reports whether an authoritative final report was received.
func (s *Session) ReportSeen() bool {
	return s.reportSeen
}

// Consume reads frames from dec until the stream ends, applying each one.
// The decoder is closed before Consume returns, however it returns.
//
// Data problems never fail the session. A transport error fails it and is
// returned. Cancellation of ctx stops consumption without failing the
// session and returns the context error.
func (s *Session) Consume(ctx context.Context, dec *sse.Decoder) error {
	defer dec.Close()

	for {
		if err := ctx.Err(); err != nil {
			s.Cancel()
			return err
		}

		frame, err := dec.Next()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.Cancel()
				return ctxErr
			}
			s.Fail(err)
			return fmt.Errorf("reading event stream: %w", err)
		}

		if frame == nil {
			s.finish(dec.Terminated())
			return nil
		}

		s.Apply(event.Normalize(frame.Bytes()))
	}
}

// Apply reduces a single event.
func (s *Session) Apply(ev event.Event) {
	if ev.Empty() {
		s.logger.Debug("event carried nothing recognizable", "session", s.id)
	}

	focusedParsed := false
	if ev.HasFocused() {
		if _, ok := s.acc.Append(ev.Focused); ok {
			focusedParsed = true
			s.render()
			s.trace.Notice(tracelog.StreamedNotice)
		} else {
			s.logger.Debug("focused summary did not look like an item", "session", s.id)
		}
	}

	stage := ev.Stage
	if stage.SearchResults != nil {
		s.trace.Append(fmt.Sprintf("Search found %d results.", len(stage.SearchResults)))
	}
	if stage.Contents != nil {
		s.trace.Append(fmt.Sprintf("Extracted content from %d sources.", len(stage.Contents)))
	}
	if stage.Summaries != nil {
		s.trace.Append(fmt.Sprintf("Generated %d summaries.", len(stage.Summaries)))
		kept := s.acc.Replace(stage.Summaries)
		s.render()
		s.logger.Debug("summaries replaced",
			"session", s.id,
			"received", len(stage.Summaries),
			"kept", kept,
		)
	}
	// The final report supersedes anything rendered from summaries.
	if stage.Report != nil {
		s.document = *stage.Report
		s.reportSeen = true
		s.trace.Append("Report generation complete.")
	}
	if stage.Message != "" {
		s.trace.Append(stage.Message)
	}

	s.machine.Advance(progress.Target(ev, focusedParsed))

	if ev.Error != "" {
		s.logger.Warn("pipeline reported an error", "session", s.id, "error", ev.Error)
		s.fail("Error: " + ev.Error)
		return
	}

	s.notify()
}

// render rebuilds the document from the summaries unless a final report
// already replaced it.
func (s *Session) render() {
	if s.reportSeen {
		return
	}
	s.document = document.Render(s.query, s.acc.Items())
}

// Fail marks the session failed because of a transport or processing error.
// The rendered document is kept.
func (s *Session) Fail(err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	s.logger.Error("research session failed", "session", s.id, "error", err)
	s.fail("Error: " + err.Error())
}

func (s *Session) fail(line string) {
	s.machine.Fail()
	s.trace.Append(line)
	s.notify()
}

func (s *Session) finish(terminated bool) {
	if !terminated {
		s.logger.Debug("stream closed without sentinel",
			"session", s.id,
			"status", s.machine.Status(),
			"report_seen", s.reportSeen,
		)
	}
	s.notify()
}

// Cancel records that the consumer stopped the session before it finished.
// The status is left where it was.
func (s *Session) Cancel() {
	s.logger.Info("research session cancelled", "session", s.id, "status", s.machine.Status())
	s.trace.Append("Research cancelled.")
	s.notify()
}

func (s *Session) notify() {
	if s.observer != nil {
		s.observer(s.Snapshot())
	}
}

// Package tracelog keeps the human-readable trace of a research session.
// The trace is observational only; nothing reads it back to make decisions.
package tracelog

import (
	"slices"
	"strings"
)

// StreamedNotice is appended each time a summary item streams in.
const StreamedNotice = "Streamed summary item..."

// noticePrefix identifies low-information notices that collapse together.
const noticePrefix = "Streamed"

// Log is an ordered, append-only list of trace lines.
type Log struct {
	lines []string
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Append adds line unconditionally.
func (l *Log) Append(line string) {
	l.lines = append(l.lines, line)
}

// Notice adds a low-information line unless Collapses says it repeats the
// last one. It reports whether the line was added.
func (l *Log) Notice(line string) bool {
	if Collapses(l.Last(), line) {
		return false
	}

	l.lines = append(l.lines, line)
	return true
}

// Collapses reports whether line should be folded into the preceding line
// last instead of growing the log. Only streamed-item notices collapse.
func Collapses(last, line string) bool {
	return strings.HasPrefix(last, noticePrefix) && strings.HasPrefix(line, noticePrefix)
}

// Last returns the most recent line, or "" for an empty log.
func (l *Log) Last() string {
	if len(l.lines) == 0 {
		return ""
	}
	return l.lines[len(l.lines)-1]
}

// Lines returns a copy of the trace.
func (l *Log) Lines() []string {
	return slices.Clone(l.lines)
}

// Len returns the number of lines.
func (l *Log) Len() int {
	return len(l.lines)
}

// Reset empties the log.
func (l *Log) Reset() {
	l.lines = nil
}

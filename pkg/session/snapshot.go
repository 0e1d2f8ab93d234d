package session

import (
	"time"

	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/summary"
)

// Snapshot is the outbound view of a session handed to presentation and
// archival collaborators. It shares no memory with the session.
type Snapshot struct {
	ID         string
	Query      string
	Status     progress.Status
	Logs       []string
	Document   string
	Summaries  []summary.Item
	ReportSeen bool
	StartedAt  time.Time
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:         s.id,
		Query:      s.query,
		Status:     s.machine.Status(),
		Logs:       s.trace.Lines(),
		Document:   s.document,
		Summaries:  s.acc.Items(),
		ReportSeen: s.reportSeen,
		StartedAt:  s.startedAt,
	}
}

package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/dossier/pkg/storage"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionFinished is emitted after a research session ends and
	// is archived.
	EventTypeSessionFinished = "dossier.session.finished"
)

// SessionFinishedEvent is a transport-neutral event payload for a finished
// research session.
type SessionFinishedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Session       SessionMeta  `json:"session"`
	Outcome       SessionStats `json:"outcome"`
}

// EventSource identifies where the session ran.
type EventSource struct {
	Host   string `json:"host,omitempty"`
	Target string `json:"target"`
}

// SessionMeta captures the request and its lifecycle.
type SessionMeta struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	Lang        string    `json:"lang,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// SessionStats summarizes what the session produced.
type SessionStats struct {
	Status         string `json:"status"`
	ReportSeen     bool   `json:"report_seen"`
	SummaryCount   int    `json:"summary_count"`
	LogLines       int    `json:"log_lines"`
	DocumentLength int    `json:"document_length"`
}

// NewSessionFinishedEvent builds the event for an archived record.
func NewSessionFinishedEvent(record *storage.Record, source EventSource, now time.Time) *SessionFinishedEvent {
	return &SessionFinishedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Source:        source,
		Session: SessionMeta{
			ID:          record.ID,
			Query:       record.Query,
			Lang:        record.Lang,
			StartedAt:   record.StartedAt,
			CompletedAt: record.FinishedAt,
			DurationMs:  record.Duration().Milliseconds(),
		},
		Outcome: SessionStats{
			Status:         string(record.Status),
			ReportSeen:     record.ReportSeen,
			SummaryCount:   len(record.Summaries),
			LogLines:       len(record.Logs),
			DocumentLength: len(record.Document),
		},
	}
}

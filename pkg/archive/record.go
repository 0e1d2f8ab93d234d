package archive

import (
	"time"

	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/storage"
)

// NewRecord captures a session snapshot as an archive record.
func NewRecord(snap session.Snapshot, lang string, finishedAt time.Time) *storage.Record {
	return &storage.Record{
		ID:         snap.ID,
		Query:      snap.Query,
		Lang:       lang,
		Status:     snap.Status,
		Logs:       snap.Logs,
		Document:   snap.Document,
		Summaries:  snap.Summaries,
		ReportSeen: snap.ReportSeen,
		StartedAt:  snap.StartedAt,
		FinishedAt: finishedAt,
	}
}

package testutils

import (
	"time"

	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/storage"
	"github.com/papercomputeco/dossier/pkg/summary"
)

// NewTestRecord creates a simple finished session record for testing.
func NewTestRecord(id, query string, startedAt time.Time) *storage.Record {
	return &storage.Record{
		ID:     id,
		Query:  query,
		Lang:   "English",
		Status: progress.Reporting,
		Logs: []string{
			`Initializing research for: "` + query + `"`,
			"Search found 2 results.",
			"Generated 1 summaries.",
		},
		Document: "# Research Report: " + query + "\n\n### T\n\n- a\n\n**Source**: [http://x](http://x)\n\n---\n\n",
		Summaries: []summary.Item{{
			Title:   "T",
			Summary: []string{"a"},
			Source:  "http://x",
			Date:    "2025-01-02",
		}},
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(42 * time.Second),
	}
}

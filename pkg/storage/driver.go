// Package storage archives finished research sessions.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/summary"
)

// Record is the archived outcome of one research session.
type Record struct {
	ID     string          `json:"id"`
	Query  string          `json:"query"`
	Lang   string          `json:"lang,omitempty"`
	Status progress.Status `json:"status"`

	// Logs is the session's trace, oldest first.
	Logs []string `json:"logs"`

	// Document is the last rendered markdown document.
	Document string `json:"document"`

	Summaries  []summary.Item `json:"summaries"`
	ReportSeen bool           `json:"report_seen"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the session ran.
func (r *Record) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Driver defines the interface for persisting and retrieving session records.
type Driver interface {
	// Put stores a record, replacing any record with the same ID.
	Put(ctx context.Context, record *Record) error

	// Get retrieves a record by its ID. It returns NotFoundError when no
	// record has that ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records, most recently started first.
	List(ctx context.Context) ([]*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}

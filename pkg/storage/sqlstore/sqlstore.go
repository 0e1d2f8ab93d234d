// Package sqlstore implements storage.Driver over any database/sql backend
// through sqlx. The sqlite and postgres drivers supply a connection and a
// schema; queries are written once with named parameters and rebound for the
// connection's placeholder style.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/storage"
	"github.com/papercomputeco/dossier/pkg/summary"
)

const upsertSession = `
INSERT INTO sessions (id, query, lang, status, logs, document, summaries, report_seen, started_at, finished_at)
VALUES (:id, :query, :lang, :status, :logs, :document, :summaries, :report_seen, :started_at, :finished_at)
ON CONFLICT (id) DO UPDATE SET
	query = excluded.query,
	lang = excluded.lang,
	status = excluded.status,
	logs = excluded.logs,
	document = excluded.document,
	summaries = excluded.summaries,
	report_seen = excluded.report_seen,
	started_at = excluded.started_at,
	finished_at = excluded.finished_at`

const selectSessions = `
SELECT id, query, lang, status, logs, document, summaries, report_seen, started_at, finished_at
FROM sessions`

// Store is a sqlx-backed session store.
type Store struct {
	DB *sqlx.DB
}

// New wraps db and applies schema, one statement at a time.
func New(ctx context.Context, db *sqlx.DB, schema []string) (*Store, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return &Store{DB: db}, nil
}

// row is the column mapping of the sessions table. Lists are stored as JSON
// text so both backends share one schema shape.
type row struct {
	ID         string    `db:"id"`
	Query      string    `db:"query"`
	Lang       string    `db:"lang"`
	Status     string    `db:"status"`
	Logs       string    `db:"logs"`
	Document   string    `db:"document"`
	Summaries  string    `db:"summaries"`
	ReportSeen bool      `db:"report_seen"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

func toRow(r *storage.Record) (*row, error) {
	logs, err := json.Marshal(nonNil(r.Logs))
	if err != nil {
		return nil, fmt.Errorf("encoding logs: %w", err)
	}
	items, err := json.Marshal(nonNil(r.Summaries))
	if err != nil {
		return nil, fmt.Errorf("encoding summaries: %w", err)
	}

	return &row{
		ID:         r.ID,
		Query:      r.Query,
		Lang:       r.Lang,
		Status:     string(r.Status),
		Logs:       string(logs),
		Document:   r.Document,
		Summaries:  string(items),
		ReportSeen: r.ReportSeen,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}, nil
}

func (rw *row) record() (*storage.Record, error) {
	r := &storage.Record{
		ID:         rw.ID,
		Query:      rw.Query,
		Lang:       rw.Lang,
		Status:     progress.Status(rw.Status),
		Document:   rw.Document,
		ReportSeen: rw.ReportSeen,
		StartedAt:  rw.StartedAt.UTC(),
		FinishedAt: rw.FinishedAt.UTC(),
	}

	if err := json.Unmarshal([]byte(rw.Logs), &r.Logs); err != nil {
		return nil, fmt.Errorf("decoding logs of %s: %w", rw.ID, err)
	}

	var items []summary.Item
	if err := json.Unmarshal([]byte(rw.Summaries), &items); err != nil {
		return nil, fmt.Errorf("decoding summaries of %s: %w", rw.ID, err)
	}
	r.Summaries = items
	return r, nil
}

// Put stores a record, replacing any record with the same ID.
func (s *Store) Put(ctx context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	rw, err := toRow(record)
	if err != nil {
		return err
	}

	if _, err := s.DB.NamedExecContext(ctx, upsertSession, rw); err != nil {
		return fmt.Errorf("storing session %s: %w", record.ID, err)
	}
	return nil
}

// Get retrieves a record by its ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	var rw row
	query := s.DB.Rebind(selectSessions + " WHERE id = ?")
	if err := s.DB.GetContext(ctx, &rw, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("loading session %s: %w", id, err)
	}
	return rw.record()
}

// List returns all records, most recently started first.
func (s *Store) List(ctx context.Context) ([]*storage.Record, error) {
	var rows []row
	if err := s.DB.SelectContext(ctx, &rows, selectSessions+" ORDER BY started_at DESC, id"); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	records := make([]*storage.Record, 0, len(rows))
	for i := range rows {
		r, err := rows[i].record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ storage.Driver = (*Store)(nil)

// Package inmemory provides a map-backed storage driver.
package inmemory

import (
	"context"
	"slices"
	"sync"

	"github.com/papercomputeco/dossier/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards records
	mu sync.RWMutex

	// records is keyed by session ID. Values are private copies.
	records map[string]*storage.Record
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]*storage.Record),
	}
}

// Put stores a copy of record.
func (s *Driver) Put(_ context.Context, record *storage.Record) error {
	if record == nil {
		return storage.ErrNilRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.ID] = clone(record)
	return nil
}

// Get retrieves a record by its ID.
func (s *Driver) Get(_ context.Context, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return clone(record), nil
}

// List returns all records, most recently started first.
func (s *Driver) List(_ context.Context) ([]*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*storage.Record, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, clone(record))
	}

	slices.SortFunc(records, func(a, b *storage.Record) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return records, nil
}

// Count returns the number of records in the in-memory store.
func (s *Driver) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op for the in-memory driver.
func (s *Driver) Close() error {
	return nil
}

func clone(r *storage.Record) *storage.Record {
	c := *r
	c.Logs = slices.Clone(r.Logs)
	c.Summaries = slices.Clone(r.Summaries)
	for i := range c.Summaries {
		c.Summaries[i].Summary = slices.Clone(c.Summaries[i].Summary)
	}
	return &c
}

var _ storage.Driver = (*Driver)(nil)

// Package archive persists finished research sessions and announces them on
// the event stream.
//
// The pool decouples storage and publishing from the research command so a
// slow database or broker never delays the rendered report.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/dossier/pkg/eventstream"
	"github.com/papercomputeco/dossier/pkg/eventstream/nop"
	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/storage"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Job is a unit of work for the pool: one finished session.
type Job struct {
	Record *storage.Record
}

// Config is the configuration options for the archive pool.
type Config struct {
	// Driver is the storage backend for session records.
	Driver storage.Driver

	// Publisher announces archived sessions. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Source is stamped on every published event.
	Source eventstream.EventSource

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes archive jobs asynchronously.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger
	now    func() time.Time
}

// NewPool creates a Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, fmt.Errorf("archive pool requires a storage driver")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Publisher == nil {
		c.Publisher = nop.NewPublisher()
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: log,
		now:    time.Now,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing.
// Returns true if enqueued, false if the queue is full and the job was dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Record == nil {
		p.logger.Warn("archive job without record ignored")
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("archive job queued", "session", job.Record.ID)
		return true
	default:
		p.logger.Error("archive job not queued, queue full, job dropped", "session", job.Record.ID)
		return false
	}
}

// Close signals workers to stop and waits for queued jobs to drain. It must
// not be called concurrently with Enqueue.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker loop that pulls jobs off the queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("archive worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("archive worker stopped", "worker_id", id)
}

// processJob stores the record and, once stored, publishes its event.
// Publishing failures are logged and do not undo the stored record.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()
	rec := job.Record

	if err := p.config.Driver.Put(ctx, rec); err != nil {
		p.logger.Error("archiving session failed", "session", rec.ID, "error", err)
		return
	}

	p.logger.Info("session archived",
		"session", rec.ID,
		"status", rec.Status,
		"summaries", len(rec.Summaries),
	)

	event := eventstream.NewSessionFinishedEvent(rec, p.config.Source, p.now())
	if err := p.config.Publisher.PublishSession(ctx, event); err != nil {
		p.logger.Warn("publishing session event failed",
			"session", rec.ID,
			"event_id", event.EventID,
			"error", err,
		)
	}
}

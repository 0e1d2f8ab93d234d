package researchcmder

import (
	"context"
	"os"
	"time"

	"github.com/papercomputeco/dossier/pkg/archive"
	"github.com/papercomputeco/dossier/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/dossier/pkg/eventstream/utils"
	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/storage"
	storageutils "github.com/papercomputeco/dossier/pkg/storage/utils"
)

// archiver owns the storage driver, publisher and worker pool used to
// archive the finished session. A nil archiver archives nothing.
type archiver struct {
	driver    storage.Driver
	publisher eventstream.Publisher
	pool      *archive.Pool
}

// openArchive builds the archive from the effective config. Archive problems
// are logged and never stop the research itself.
func (c *researchCommander) openArchive(ctx context.Context, target string) *archiver {
	if c.noArchive {
		return nil
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      c.cfg.Storage.Driver,
		SQLitePath:  c.cfg.Storage.SQLitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		ConfigDir:   c.configDir,
		Logger:      c.logger,
	})
	if err != nil {
		c.logger.Warn("session archive unavailable", "driver", c.cfg.Storage.Driver, "error", err)
		return nil
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.cfg.EventStream.Provider,
		Brokers:      c.cfg.EventStream.BrokerList(),
		Topic:        c.cfg.EventStream.Topic,
		Logger:       c.logger,
	})
	if err != nil {
		c.logger.Warn("session events disabled", "provider", c.cfg.EventStream.Provider, "error", err)
		publisher = nil
	}

	host, _ := os.Hostname()
	pool, err := archive.NewPool(&archive.Config{
		Driver:    driver,
		Publisher: publisher,
		Source:    eventstream.EventSource{Host: host, Target: target},
		Logger:    c.logger,
	})
	if err != nil {
		c.logger.Warn("session archive unavailable", "error", err)
		_ = driver.Close()
		return nil
	}

	return &archiver{
		driver:    driver,
		publisher: publisher,
		pool:      pool,
	}
}

// Save queues snap for archival.
func (a *archiver) Save(snap session.Snapshot, lang string, finishedAt time.Time) {
	if a == nil {
		return
	}
	a.pool.Enqueue(archive.Job{Record: archive.NewRecord(snap, lang, finishedAt)})
}

// Close drains the pool, then releases the publisher and driver.
func (a *archiver) Close() {
	if a == nil {
		return
	}
	a.pool.Close()
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	_ = a.driver.Close()
}

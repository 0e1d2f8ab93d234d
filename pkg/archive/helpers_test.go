package archive

import (
	"context"
	"encoding/json"

	"github.com/papercomputeco/dossier/pkg/event"
	"github.com/papercomputeco/dossier/pkg/storage"
	testutils "github.com/papercomputeco/dossier/pkg/utils/test"
)

// blockingDriver holds every Put until release is closed.
type blockingDriver struct {
	*testutils.FailingDriver
	release chan struct{}
	started chan struct{}
}

func (d *blockingDriver) Put(ctx context.Context, record *storage.Record) error {
	select {
	case d.started <- struct{}{}:
	default:
	}
	<-d.release
	return d.FailingDriver.Put(ctx, record)
}

func eventFromSearch() event.Event {
	return event.Event{Stage: event.Stage{SearchResults: []json.RawMessage{json.RawMessage(`1`)}}}
}

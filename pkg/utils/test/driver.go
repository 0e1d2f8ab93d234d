package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/dossier/pkg/storage"
	"github.com/papercomputeco/dossier/pkg/storage/inmemory"
)

// ErrStorageDown is returned by FailingDriver.
var ErrStorageDown = errors.New("mock storage unavailable")

// FailingDriver wraps an in-memory driver and fails selected operations.
type FailingDriver struct {
	*inmemory.Driver

	FailPut  bool
	FailList bool
}

// NewFailingDriver creates a FailingDriver that initially fails nothing.
func NewFailingDriver() *FailingDriver {
	return &FailingDriver{Driver: inmemory.NewDriver()}
}

func (d *FailingDriver) Put(ctx context.Context, record *storage.Record) error {
	if d.FailPut {
		return ErrStorageDown
	}
	return d.Driver.Put(ctx, record)
}

func (d *FailingDriver) List(ctx context.Context) ([]*storage.Record, error) {
	if d.FailList {
		return nil, ErrStorageDown
	}
	return d.Driver.List(ctx)
}

var _ storage.Driver = (*FailingDriver)(nil)

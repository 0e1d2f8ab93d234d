package storageutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/papercomputeco/dossier/pkg/dotdir"
	"github.com/papercomputeco/dossier/pkg/storage"
	"github.com/papercomputeco/dossier/pkg/storage/inmemory"
	"github.com/papercomputeco/dossier/pkg/storage/postgres"
	"github.com/papercomputeco/dossier/pkg/storage/sqlite"
)

// Supported driver names.
const (
	DriverInMemory = "inmemory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLiteFile is the archive file name inside the .dossier directory.
const DefaultSQLiteFile = "dossier.db"

type NewDriverOpts struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string

	// ConfigDir overrides the .dossier directory used for the default
	// SQLite path.
	ConfigDir string

	Logger *slog.Logger
}

// NewDriver builds the storage driver named by o.Driver. An empty name
// selects SQLite.
func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	name := strings.ToLower(strings.TrimSpace(o.Driver))
	if name == "" {
		name = DriverSQLite
	}

	switch name {
	case DriverInMemory, "memory":
		return inmemory.NewDriver(), nil

	case DriverSQLite:
		path, err := ResolveSQLitePath(o.SQLitePath, o.ConfigDir)
		if err != nil {
			return nil, err
		}
		if o.Logger != nil {
			o.Logger.Debug("opening sqlite archive", "path", path)
		}
		return sqlite.NewSQLiteDriver(path)

	case DriverPostgres:
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN (storage.postgres_dsn)")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", o.Driver)
	}
}

// ResolveSQLitePath returns override when set, otherwise the default archive
// file inside the .dossier directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override = strings.TrimSpace(override); override != "" {
		return os.ExpandEnv(override), nil
	}

	path, err := dotdir.NewManager().Path(configDir, DefaultSQLiteFile)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return path, nil
}

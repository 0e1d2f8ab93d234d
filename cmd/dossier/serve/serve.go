// Package servecmder provides the serve command, which runs the session
// archive API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/api"
	"github.com/papercomputeco/dossier/pkg/config"
	"github.com/papercomputeco/dossier/pkg/logger"
	storageutils "github.com/papercomputeco/dossier/pkg/storage/utils"
)

type ServeCommander struct {
	flags config.FlagSet
	cfg   *config.Config

	listen        string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	jsonLogs      bool

	debug     bool
	configDir string

	logger *slog.Logger
}

var serveFlags = []string{
	config.FlagAPIListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

const serveLongDesc string = `Run the session archive API.

Serves archived research sessions over HTTP from the configured storage
driver:
  GET /ping                          Liveness check
  GET /v1/stats                      Session counts by status
  GET /v1/sessions                   List sessions (?limit=, ?status=)
  GET /v1/sessions/:id               One session with its trace and summaries
  GET /v1/sessions/:id/document      The session's markdown document

Examples:
  dossier serve
  dossier serve --listen :9000 --storage postgres --postgres-dsn postgres://...`

const serveShortDesc string = "Run the session archive API"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{
		flags: config.Registry,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithJSON(cmder.jsonLogs),
				logger.WithPretty(!cmder.jsonLogs),
				logger.WithWriter(cmd.ErrOrStderr()),
				logger.WithComponent("api"),
			)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write structured JSON logs")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	driver, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		Driver:      c.cfg.Storage.Driver,
		SQLitePath:  c.cfg.Storage.SQLitePath,
		PostgresDSN: c.cfg.Storage.PostgresDSN,
		ConfigDir:   c.configDir,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("opening session archive: %w", err)
	}
	defer driver.Close()

	c.logger.Info("using session archive", "driver", c.cfg.Storage.Driver)

	server := api.NewServer(api.Config{ListenAddr: c.cfg.API.Listen}, driver, c.logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down API server")
		return server.Shutdown()
	}
}

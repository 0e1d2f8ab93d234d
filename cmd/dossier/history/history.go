// Package historycmder provides the history command for browsing archived
// research sessions.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/config"
	"github.com/papercomputeco/dossier/pkg/dotdir"
	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/storage"
	storageutils "github.com/papercomputeco/dossier/pkg/storage/utils"
	"github.com/papercomputeco/dossier/pkg/utils"
)

// lastAlias selects the most recent session recorded in the .dossier directory.
const lastAlias = "last"

type historyCommander struct {
	flags config.FlagSet
	cfg   *config.Config

	storageDriver string
	sqlitePath    string
	postgresDSN   string

	id       string
	limit    int
	asJSON   bool
	showLogs bool
	raw      bool

	debug     bool
	configDir string

	stdout io.Writer
	logger *slog.Logger
}

var historyFlags = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

const historyLongDesc string = `Browse archived research sessions.

Without arguments, lists archived sessions, most recent first. With a session
ID, shows that session's details and its research document. "last" selects
the session most recently run from this .dossier directory.

Examples:
  dossier history
  dossier history --limit 5
  dossier history last
  dossier history 3f2a... --logs
  dossier history last --json`

const historyShortDesc string = "Browse archived research sessions"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{
		flags: config.Registry,
	}

	cmd := &cobra.Command{
		Use:   "history [id|last]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, historyFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmder.id = args[0]
			}
			cmder.stdout = cmd.OutOrStdout()
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(true),
				logger.WithWriter(cmd.ErrOrStderr()),
				logger.WithComponent("history"),
			)
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)

	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 20, "Maximum number of sessions to list (0 for all)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&cmder.showLogs, "logs", false, "Include the progress trace when showing a session")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print raw markdown even when stdout is a terminal")

	return cmd
}

func (c *historyCommander) run(ctx context.Context) error {
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

	if c.id == "" {
		return c.list(ctx, driver)
	}
	return c.show(ctx, driver)
}

func (c *historyCommander) list(ctx context.Context, driver storage.Driver) error {
	records, err := driver.List(ctx)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if c.limit > 0 && len(records) > c.limit {
		records = records[:c.limit]
	}

	if c.asJSON {
		return c.writeJSON(records)
	}

	if len(records) == 0 {
		fmt.Fprintf(c.stdout, "%s\n", cliui.DimStyle.Render("No archived sessions."))
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(c.stdout, "%s  %-12s %s  %s\n",
			cliui.IDStyle.Render(utils.Truncate(r.ID, 8)),
			cliui.RenderStatus(r.Status),
			cliui.DimStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
			utils.Truncate(utils.OneLine(r.Query), 60),
		)
	}
	return nil
}

func (c *historyCommander) show(ctx context.Context, driver storage.Driver) error {
	id, err := c.resolveID()
	if err != nil {
		return err
	}

	record, err := driver.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("no archived session %q", id)
		}
		return fmt.Errorf("loading session: %w", err)
	}

	if c.asJSON {
		return c.writeJSON(record)
	}

	w := c.stdout
	fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Session: "), cliui.IDStyle.Render(record.ID))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Query:   "), record.Query)
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Status:  "), cliui.RenderStatus(record.Status))
	if record.Lang != "" {
		fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Language:"), record.Lang)
	}
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Started: "), record.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Duration:"), cliui.FormatDuration(record.Duration()))
	fmt.Fprintf(w, "  %s %d\n", cliui.KeyStyle.Render("Sources: "), len(record.Summaries))
	if !record.ReportSeen {
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("No final report was received; the document is built from summaries."))
	}

	if c.showLogs {
		fmt.Fprintf(w, "\n  %s\n", cliui.TitleStyle.Render("Trace"))
		for _, line := range record.Logs {
			fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("›"), line)
		}
	}
	fmt.Fprintln(w)

	return c.writeDocument(record.Document)
}

func (c *historyCommander) resolveID() (string, error) {
	if !strings.EqualFold(c.id, lastAlias) {
		return c.id, nil
	}

	last, err := dotdir.NewManager().LoadLastSession(c.configDir)
	if err != nil {
		return "", err
	}
	if last == nil {
		return "", errors.New("no research session has been run yet")
	}
	return last.ID, nil
}

func (c *historyCommander) writeDocument(doc string) error {
	if doc == "" {
		fmt.Fprintf(c.stdout, "  %s\n", cliui.DimStyle.Render("No document was produced."))
		return nil
	}

	f, isFile := c.stdout.(*os.File)
	if c.raw || !isFile || !cliui.IsTerminal(f) {
		_, err := fmt.Fprintln(c.stdout, doc)
		return err
	}

	rendered, err := cliui.RenderMarkdown(doc, cliui.TerminalWidth(f, 100)-4)
	if err != nil {
		c.logger.Debug("markdown rendering failed, printing raw", "error", err)
	}
	_, err = fmt.Fprint(c.stdout, rendered)
	return err
}

func (c *historyCommander) writeJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

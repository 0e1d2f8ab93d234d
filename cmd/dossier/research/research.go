// Package researchcmder provides the research command: it sends a query to
// the research server, follows the pipeline's event stream, renders the
// resulting document and archives the finished session.
package researchcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/pkg/capture"
	"github.com/papercomputeco/dossier/pkg/client"
	"github.com/papercomputeco/dossier/pkg/config"
	"github.com/papercomputeco/dossier/pkg/dotdir"
	"github.com/papercomputeco/dossier/pkg/event"
	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/sse"
)

type researchCommander struct {
	flags config.FlagSet
	cfg   *config.Config

	// Registry-backed flags. Their effective values are read from cfg.
	target        string
	lang          string
	count         uint
	format        string
	mode          string
	timeout       string
	pollInterval  string
	storageDriver string
	sqlitePath    string
	postgresDSN   string
	eventstream   string
	brokers       string
	topic         string

	startDate string
	endDate   string
	startTime string
	endTime   string

	output    string
	capture   string
	logFile   string
	tui       bool
	raw       bool
	noArchive bool

	debug     bool
	configDir string

	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

var researchFlags = []string{
	config.FlagTarget,
	config.FlagLang,
	config.FlagCount,
	config.FlagFormat,
	config.FlagMode,
	config.FlagTimeout,
	config.FlagPollInterval,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagEventStreamProvider,
	config.FlagEventStreamBrokers,
	config.FlagEventStreamTopic,
}

const researchLongDesc string = `Run a research request against the research server.

The query is sent to the server's /research endpoint. In stream mode (the
default) the pipeline's progress is followed live: each stage is reported as
it happens (searching, extracting, summarizing, reporting) and the research
document is built up from streamed summaries until the final report arrives.
In async mode a background job is submitted and polled until it finishes.

Progress goes to stderr and the document goes to stdout, rendered for the
terminal when stdout is a TTY and as raw markdown otherwise.

Finished sessions are archived to the configured storage driver and announced
on the configured event stream.

Examples:
  dossier research "fusion energy startups"
  dossier research -l English -n 10 "solid state batteries" -o report.md
  dossier research --mode async "quantum error correction"
  dossier research --capture run.sse --tui "carbon capture"`

const researchShortDesc string = "Run a research request"

func NewResearchCmd() *cobra.Command {
	cmder := &researchCommander{
		flags: config.Registry,
	}

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: researchShortDesc,
		Long:  researchLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.stdout = cmd.OutOrStdout()
			cmder.stderr = cmd.ErrOrStderr()
			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagTarget, &cmder.target)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLang, &cmder.lang)
	config.AddUintFlag(cmd, cmder.flags, config.FlagCount, &cmder.count)
	config.AddStringFlag(cmd, cmder.flags, config.FlagFormat, &cmder.format)
	config.AddStringFlag(cmd, cmder.flags, config.FlagMode, &cmder.mode)
	config.AddStringFlag(cmd, cmder.flags, config.FlagTimeout, &cmder.timeout)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPollInterval, &cmder.pollInterval)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageDriver, &cmder.storageDriver)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStreamProvider, &cmder.eventstream)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStreamBrokers, &cmder.brokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventStreamTopic, &cmder.topic)

	cmd.Flags().StringVar(&cmder.startDate, "start-date", "", "Only use sources published on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.endDate, "end-date", "", "Only use sources published on or before this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cmder.startTime, "start-time", "", "Start of the publication window on start-date (HH:MM:SS)")
	cmd.Flags().StringVar(&cmder.endTime, "end-time", "", "End of the publication window on end-date (HH:MM:SS)")

	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Write the final markdown document to this file")
	cmd.Flags().StringVar(&cmder.capture, "capture", "", "Record the raw event stream to this file for replay")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.tui, "tui", false, "Show a live terminal view while the research runs")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print raw markdown even when stdout is a terminal")
	cmd.Flags().BoolVar(&cmder.noArchive, "no-archive", false, "Do not archive the finished session")

	return cmd
}

// load resolves the effective configuration: flags > env > config file > defaults.
func (c *researchCommander) load(cmd *cobra.Command) error {
	c.debug, _ = cmd.Flags().GetBool("debug")
	c.configDir, _ = cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, c.flags, researchFlags)
	c.cfg = config.FromViper(v)
	return nil
}

func (c *researchCommander) run(ctx context.Context, query string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	closeLog, err := c.initLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	req, err := c.newRequest(query)
	if err != nil {
		return err
	}

	timeout, err := time.ParseDuration(c.cfg.Client.Timeout)
	if err != nil {
		return fmt.Errorf("invalid client timeout %q: %w", c.cfg.Client.Timeout, err)
	}
	interval, err := time.ParseDuration(c.cfg.Client.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", c.cfg.Client.PollInterval, err)
	}

	cl := client.New(client.Config{
		Target:  c.cfg.Client.Target,
		Timeout: timeout,
	}, c.logger)

	arch := c.openArchive(ctx, cl.Target())
	defer arch.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := func(ctx context.Context, sess *session.Session) error {
		return c.execute(ctx, cl, req, interval, sess)
	}

	var (
		snap   session.Snapshot
		runErr error
	)
	if c.tui {
		snap, runErr = c.runTUI(ctx, req.Query, exec)
	} else {
		snap, runErr = c.runPlain(ctx, req.Query, exec)
	}
	finishedAt := time.Now()

	arch.Save(snap, req.Lang, finishedAt)
	c.saveLastSession(snap, finishedAt)

	if err := c.writeOutput(snap.Document); err != nil {
		return err
	}
	c.printDocument(snap)

	return c.outcome(snap, runErr)
}

func (c *researchCommander) initLogger() (func(), error) {
	console := c.stderr
	if c.tui {
		// The live view owns the terminal.
		console = io.Discard
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithTimestamps(false),
		logger.WithWriter(console),
	)

	if c.logFile == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(c.logger, logger.New(
		logger.WithDebug(true),
		logger.WithJSON(true),
		logger.WithWriter(f),
		logger.WithComponent("research"),
	))
	return func() { _ = f.Close() }, nil
}

func (c *researchCommander) newRequest(query string) (client.Request, error) {
	req := client.Request{
		Query:     query,
		Lang:      c.cfg.Client.Lang,
		Format:    c.cfg.Client.Format,
		Count:     int(c.cfg.Client.Count),
		Mode:      client.Mode(strings.ToLower(c.cfg.Client.Mode)),
		StartDate: c.startDate,
		EndDate:   c.endDate,
		StartTime: c.startTime,
		EndTime:   c.endTime,
	}

	if err := req.Validate(); err != nil {
		return client.Request{}, fmt.Errorf("invalid research request: %w", err)
	}
	return req, nil
}

// execute drives sess from the server until the stream or job ends.
func (c *researchCommander) execute(
	ctx context.Context,
	cl *client.Client,
	req client.Request,
	interval time.Duration,
	sess *session.Session,
) error {
	if req.Mode == client.ModeAsync {
		return c.executeAsync(ctx, cl, req, interval, sess)
	}

	opts := []sse.Option{sse.WithLogger(c.logger)}
	if c.capture != "" {
		f, err := capture.Create(c.capture)
		if err != nil {
			return err
		}
		defer f.Close()
		opts = append(opts, sse.WithTee(f))
	}

	body, err := cl.Stream(ctx, req)
	if err != nil {
		return c.transportFailed(ctx, sess, err)
	}

	return sess.Consume(ctx, sse.NewDecoder(body, opts...))
}

// executeAsync submits a background job and feeds its progress to sess as
// synthetic events.
func (c *researchCommander) executeAsync(
	ctx context.Context,
	cl *client.Client,
	req client.Request,
	interval time.Duration,
	sess *session.Session,
) error {
	ref, err := cl.Submit(ctx, req)
	if err != nil {
		return c.transportFailed(ctx, sess, err)
	}
	sess.Apply(message(fmt.Sprintf("Research job %s submitted.", ref.ID)))

	last := ref.Status
	job, err := cl.Wait(ctx, ref.ID, interval, func(j *client.Job) {
		if j.Status == last || j.Status.Done() {
			return
		}
		last = j.Status
		sess.Apply(message(fmt.Sprintf("Research job %s is %s.", ref.ID, strings.ReplaceAll(string(j.Status), "_", " "))))
	})

	switch {
	case job != nil && job.Status == client.JobFailed:
		reason := job.Error
		if reason == "" {
			reason = "research job failed"
		}
		sess.Apply(event.Event{Error: reason})
		return err

	case err != nil:
		return c.transportFailed(ctx, sess, err)
	}

	report := ""
	if job.Result != nil {
		report = job.Result.Report
	}
	sess.Apply(event.Event{Stage: event.Stage{Report: &report}})
	return nil
}

func message(text string) event.Event {
	return event.Event{Stage: event.Stage{Message: text}}
}

// transportFailed records err on sess. A cancelled context is a cancellation,
// not a failure.
func (c *researchCommander) transportFailed(ctx context.Context, sess *session.Session, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		sess.Cancel()
		return ctxErr
	}
	sess.Fail(err)
	return err
}

func (c *researchCommander) runPlain(ctx context.Context, query string, exec func(context.Context, *session.Session) error) (session.Snapshot, error) {
	printer := newProgressPrinter(c.stderr)
	sess := session.New(query,
		session.WithLogger(c.logger),
		session.WithObserver(printer.observe),
	)

	err := exec(ctx, sess)
	return sess.Snapshot(), err
}

func (c *researchCommander) saveLastSession(snap session.Snapshot, finishedAt time.Time) {
	last := &dotdir.LastSession{
		ID:         snap.ID,
		Query:      snap.Query,
		Status:     string(snap.Status),
		FinishedAt: finishedAt,
		Output:     c.output,
	}
	if err := dotdir.NewManager().SaveLastSession(last, c.configDir); err != nil {
		c.logger.Warn("could not record last session", "error", err)
	}
}

func (c *researchCommander) writeOutput(document string) error {
	if c.output == "" || document == "" {
		return nil
	}

	if err := os.WriteFile(c.output, []byte(document), 0o644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	c.logger.Info("document written", "path", c.output, "bytes", len(document))
	return nil
}

// outcome maps the final snapshot to the command's error.
func (c *researchCommander) outcome(snap session.Snapshot, runErr error) error {
	switch {
	case errors.Is(runErr, context.Canceled):
		return errors.New("research cancelled")

	case snap.Status == progress.Failed:
		if reason := lastError(snap.Logs); reason != "" {
			return fmt.Errorf("research failed: %s", reason)
		}
		return errors.New("research failed")

	case runErr != nil:
		return runErr

	case !snap.ReportSeen:
		c.logger.Warn("stream ended before a final report was delivered", "status", snap.Status)
	}

	return nil
}

func lastError(logs []string) string {
	for i := len(logs) - 1; i >= 0; i-- {
		if reason, ok := strings.CutPrefix(logs[i], "Error: "); ok {
			return reason
		}
	}
	return ""
}

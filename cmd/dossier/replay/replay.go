// Package replaycmder provides the replay command, which runs a recorded
// event stream capture through the session reducer.
package replaycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/dossier/pkg/capture"
	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/logger"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/sse"
)

type replayCommander struct {
	path      string
	query     string
	follow    bool
	chunkSize int
	output    string
	quiet     bool
	debug     bool

	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

const replayLongDesc string = `Replay a recorded event stream through the session reducer.

Reads a capture written by "dossier research --capture" (or any file of
"data: <json>" records separated by blank lines) and reduces it exactly as
a live stream would be: the progress trace is printed as it builds up and
the final document is written to stdout.

With --follow the capture is tailed while it is still being written, until
the end-of-stream sentinel arrives or the command is interrupted.

A path of "-" (or no path) reads standard input.

Examples:
  dossier replay run.sse
  dossier replay --follow run.sse
  curl -sN ... | dossier replay -`

const replayShortDesc string = "Replay a recorded event stream"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay [file|-]",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				cmder.path = args[0]
			}
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.stdout = cmd.OutOrStdout()
			cmder.stderr = cmd.ErrOrStderr()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.query, "query", "q", "replay", "Query to title the document with")
	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep reading as the capture grows")
	cmd.Flags().IntVar(&cmder.chunkSize, "chunk-size", 0, "Read the capture in chunks of this many bytes")
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Write the final markdown document to this file")
	cmd.Flags().BoolVar(&cmder.quiet, "quiet", false, "Do not print the progress trace")

	return cmd
}

func (c *replayCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(c.stderr),
		logger.WithComponent("replay"),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := c.open(ctx)
	if err != nil {
		return err
	}

	var status progress.Status
	printed := 0
	observer := func(snap session.Snapshot) {
		if c.quiet {
			return
		}
		if snap.Status != status {
			status = snap.Status
			fmt.Fprintf(c.stderr, "  %s %s\n", cliui.DimStyle.Render("status"), cliui.RenderStatus(snap.Status))
		}
		for _, line := range snap.Logs[min(printed, len(snap.Logs)):] {
			fmt.Fprintf(c.stderr, "  %s %s\n", cliui.DimStyle.Render("›"), line)
		}
		printed = len(snap.Logs)
	}

	sess := session.New(c.query,
		session.WithLogger(c.logger),
		session.WithObserver(observer),
	)

	dec := sse.NewDecoder(src,
		sse.WithLogger(c.logger),
		sse.WithChunkSize(c.chunkSize),
	)

	err = sess.Consume(ctx, dec)
	snap := sess.Snapshot()

	if snap.Document != "" {
		fmt.Fprintln(c.stdout, snap.Document)
		if c.output != "" {
			if werr := os.WriteFile(c.output, []byte(snap.Document), 0o644); werr != nil {
				return fmt.Errorf("writing document: %w", werr)
			}
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		return err
	case snap.Status == progress.Failed:
		return errors.New("replayed session failed")
	}

	if !dec.Terminated() {
		c.logger.Debug("capture ended without the end-of-stream sentinel", "status", snap.Status)
	}
	return nil
}

func (c *replayCommander) open(ctx context.Context) (io.ReadCloser, error) {
	if !c.follow {
		return capture.Open(c.path)
	}

	if c.path == "" || c.path == capture.Stdin {
		// Standard input already blocks until more data arrives.
		return capture.Open(c.path)
	}

	return capture.Follow(ctx, c.path, c.logger)
}

package researchcmder

import (
	"fmt"
	"io"
	"os"

	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/progress"
	"github.com/papercomputeco/dossier/pkg/session"
)

// progressPrinter writes status changes and newly appended log lines.
// Collapsed "Streamed" notices do not grow the log, so they print once.
type progressPrinter struct {
	w       io.Writer
	printed int
	status  progress.Status
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) observe(snap session.Snapshot) {
	if snap.Status != p.status {
		p.status = snap.Status
		fmt.Fprintf(p.w, "  %s %s\n", cliui.DimStyle.Render("status"), cliui.RenderStatus(snap.Status))
	}

	if p.printed > len(snap.Logs) {
		p.printed = 0
	}
	for _, line := range snap.Logs[p.printed:] {
		fmt.Fprintf(p.w, "  %s %s\n", cliui.DimStyle.Render("›"), line)
	}
	p.printed = len(snap.Logs)
}

// printDocument writes the final document to stdout: glamour-rendered on a
// terminal, raw markdown otherwise.
func (c *researchCommander) printDocument(snap session.Snapshot) {
	if snap.Document == "" {
		fmt.Fprintf(c.stderr, "\n  %s\n", cliui.DimStyle.Render("No document was produced."))
		return
	}

	f, isFile := c.stdout.(*os.File)
	if c.raw || !isFile || !cliui.IsTerminal(f) {
		fmt.Fprintln(c.stdout, snap.Document)
		return
	}

	rendered, err := cliui.RenderMarkdown(snap.Document, cliui.TerminalWidth(f, 100)-4)
	if err != nil {
		c.logger.Debug("markdown rendering failed, printing raw", "error", err)
	}
	fmt.Fprint(c.stdout, rendered)
}

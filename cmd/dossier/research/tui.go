package researchcmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/dossier/pkg/cliui"
	"github.com/papercomputeco/dossier/pkg/session"
	"github.com/papercomputeco/dossier/pkg/utils"
)

const tuiLogLines = 6

var (
	tuiTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	tuiMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tuiDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	tuiLogStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

type researchKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func (k researchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Quit}
}

func (k researchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Down, k.Up, k.Quit}}
}

func defaultKeyMap() researchKeyMap {
	return researchKeyMap{
		Up:   key.NewBinding(key.WithKeys("k", "up", "pgup"), key.WithHelp("k", "scroll up")),
		Down: key.NewBinding(key.WithKeys("j", "down", "pgdown"), key.WithHelp("j", "scroll down")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop")),
	}
}

type snapshotMsg session.Snapshot

type doneMsg struct {
	err error
}

type researchModel struct {
	query      string
	snap       session.Snapshot
	spinner    spinner.Model
	viewport   viewport.Model
	keys       researchKeyMap
	help       help.Model
	width      int
	height     int
	stopping   bool
	done       bool
	cancel     context.CancelFunc
	lastLength int
}

func newResearchModel(query string, cancel context.CancelFunc) researchModel {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("82"))),
	)

	return researchModel{
		query:    query,
		spinner:  sp,
		viewport: viewport.New(80, 10),
		keys:     defaultKeyMap(),
		help:     help.New(),
		cancel:   cancel,
	}
}

func (m researchModel) Init() bubbletea.Cmd {
	return m.spinner.Tick
}

func (m researchModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(3, msg.Height-tuiLogLines-6)
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		if len(m.snap.Document) != m.lastLength {
			m.lastLength = len(m.snap.Document)
			m.viewport.SetContent(m.snap.Document)
			m.viewport.GotoBottom()
		}
		return m, nil

	case doneMsg:
		m.done = true
		return m, bubbletea.Quit

	case bubbletea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if !m.stopping && m.cancel != nil {
				m.stopping = true
				m.cancel()
			}
			return m, nil
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m researchModel) View() string {
	var b strings.Builder

	status := cliui.RenderStatus(m.snap.Status)
	if m.snap.Status == "" {
		status = tuiMutedStyle.Render("connecting")
	}
	indicator := m.spinner.View()
	if m.snap.Status.Terminal() {
		indicator = " "
	}
	if m.stopping {
		status = tuiMutedStyle.Render("stopping…")
	}

	width := max(20, m.width)
	fmt.Fprintf(&b, "%s %s  %s\n",
		indicator,
		tuiTitleStyle.Render(utils.Truncate(m.query, max(10, width-30))),
		status,
	)
	b.WriteString(tuiDividerStyle.Render(strings.Repeat("─", width)) + "\n")

	logs := m.snap.Logs
	if len(logs) > tuiLogLines {
		logs = logs[len(logs)-tuiLogLines:]
	}
	for i := 0; i < tuiLogLines; i++ {
		if i < len(logs) {
			b.WriteString(tuiLogStyle.Render("› "+utils.Truncate(utils.OneLine(logs[i]), max(10, width-4))))
		}
		b.WriteString("\n")
	}

	b.WriteString(tuiDividerStyle.Render(strings.Repeat("─", width)) + "\n")
	if m.snap.Document == "" {
		b.WriteString(tuiMutedStyle.Render("Waiting for the document…") + "\n")
	} else {
		b.WriteString(m.viewport.View() + "\n")
	}
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// runTUI runs exec under a live view. The session is created on exec's
// goroutine once the program is running, because snapshots are sent to the
// program from the session observer.
func (c *researchCommander) runTUI(ctx context.Context, query string, exec func(context.Context, *session.Session) error) (session.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := bubbletea.NewProgram(newResearchModel(query, cancel), bubbletea.WithAltScreen())

	type result struct {
		snap session.Snapshot
		err  error
	}
	finished := make(chan result, 1)

	go func() {
		sess := session.New(query,
			session.WithLogger(c.logger),
			session.WithObserver(func(s session.Snapshot) {
				program.Send(snapshotMsg(s))
			}),
		)
		err := exec(ctx, sess)
		finished <- result{snap: sess.Snapshot(), err: err}
		program.Send(doneMsg{err: err})
	}()

	if _, err := program.Run(); err != nil {
		c.logger.Warn("live view stopped", "error", err)
	}

	// The program may exit before the session does (e.g. a terminal error);
	// stop the session and wait for it either way.
	cancel()
	res := <-finished

	// Replay the trace so it remains visible after the alternate screen closes.
	printer := newProgressPrinter(c.stderr)
	printer.observe(res.snap)

	return res.snap, res.err
}

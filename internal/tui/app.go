// internal/tui/app.go
//
// Live progress for a stacker run. It uses bubbletea, which follows The Elm
// Architecture: the runner reports through an Observer, the observer turns
// each event into a message, Update folds it into the model and View draws
// one bar for the output being written plus a line per finished output.

package tui

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/stacker/internal/config"
	"github.com/kingrea/stacker/internal/gcode"
	"github.com/kingrea/stacker/internal/logbook"
	"github.com/kingrea/stacker/internal/stacker"
)

const (
	maxBarWidth  = 60
	logTailLines = 4
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).MarginTop(1)
)

type requestStartedMsg struct {
	index int
}

type repetitionWrittenMsg struct {
	index      int
	repetition int
}

type requestFinishedMsg struct {
	index int
	stats gcode.Stats
	err   error
}

type runFinishedMsg struct {
	results []stacker.Result
	err     error
}

// programObserver forwards runner events into a running bubbletea program.
type programObserver struct {
	send func(tea.Msg)
}

func (o *programObserver) RequestStarted(index int, _ stacker.Request) {
	o.send(requestStartedMsg{index: index})
}

func (o *programObserver) RepetitionWritten(index int, _ stacker.Request, rep int) {
	o.send(repetitionWrittenMsg{index: index, repetition: rep})
}

func (o *programObserver) RequestFinished(index int, _ stacker.Request, stats gcode.Stats, err error) {
	o.send(requestFinishedMsg{index: index, stats: stats, err: err})
}

type requestState int

const (
	statePending requestState = iota
	stateActive
	stateDone
	stateFailed
)

type requestRow struct {
	req     stacker.Request
	state   requestState
	written int
	stats   gcode.Stats
	err     error
}

// App is the progress model. It owns no rewrite logic; start runs the rewrite
// and reports back through runFinishedMsg.
type App struct {
	rows       []requestRow
	bar        progress.Model
	logbook    *logbook.Logbook
	logTail    []string
	start      tea.Cmd
	cancel     context.CancelFunc
	cancelling bool

	results []stacker.Result
	err     error
	done    bool
}

func newApp(reqs []stacker.Request, book *logbook.Logbook, start tea.Cmd, cancel context.CancelFunc) *App {
	rows := make([]requestRow, len(reqs))
	for i, req := range reqs {
		rows[i] = requestRow{req: req}
	}
	return &App{
		rows:    rows,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		logbook: book,
		start:   start,
		cancel:  cancel,
	}
}

// Run executes every output in cfg while drawing progress to out, then
// returns what the runner returned.
func Run(ctx context.Context, cfg *config.Config, book *logbook.Logbook, out io.Writer) ([]stacker.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	obs := &programObserver{}
	runner, err := stacker.New(cfg, stacker.WithObserver(obs), stacker.WithLogbook(book))
	if err != nil {
		return nil, err
	}
	start := func() tea.Msg {
		results, err := runner.Run(ctx)
		return runFinishedMsg{results: results, err: err}
	}
	app := newApp(runner.Requests(), book, start, cancel)
	p := tea.NewProgram(app, tea.WithOutput(out))
	obs.send = p.Send

	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("tui: %w", err)
	}
	finished, ok := final.(*App)
	if !ok {
		return nil, fmt.Errorf("tui: unexpected model %T", final)
	}
	return finished.results, finished.err
}

func (a *App) Init() tea.Cmd {
	return a.start
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if a.cancel != nil && !a.cancelling {
				a.cancelling = true
				a.cancel()
			}
		}
		return a, nil
	case tea.WindowSizeMsg:
		a.bar.Width = min(maxBarWidth, max(10, msg.Width-30))
		return a, nil
	case requestStartedMsg:
		if row := a.row(msg.index); row != nil {
			row.state = stateActive
			row.written = 0
		}
		return a, nil
	case repetitionWrittenMsg:
		if row := a.row(msg.index); row != nil {
			row.written = msg.repetition + 1
		}
		return a, nil
	case requestFinishedMsg:
		if row := a.row(msg.index); row != nil {
			row.stats = msg.stats
			row.err = msg.err
			row.state = stateDone
			if msg.err != nil {
				row.state = stateFailed
			}
		}
		a.refreshLog()
		return a, nil
	case runFinishedMsg:
		a.results = msg.results
		a.err = msg.err
		a.done = true
		a.refreshLog()
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) row(index int) *requestRow {
	if index < 0 || index >= len(a.rows) {
		return nil
	}
	return &a.rows[index]
}

func (a *App) refreshLog() {
	a.logTail, _ = a.logbook.Tail(logTailLines)
}

func (a *App) View() string {
	sections := []string{headerStyle.Render("⬡ STACKER")}
	for _, row := range a.rows {
		sections = append(sections, a.renderRow(row))
	}
	if panel := a.renderLogPanel(); panel != "" {
		sections = append(sections, panel)
	}
	switch {
	case a.done:
	case a.cancelling:
		sections = append(sections, hintStyle.Render("Cancelling…"))
	default:
		sections = append(sections, hintStyle.Render("ctrl+c → cancel"))
	}
	return strings.Join(sections, "\n") + "\n"
}

func (a *App) renderRow(row requestRow) string {
	name := filepath.Base(row.req.Path)
	switch row.state {
	case stateActive:
		return fmt.Sprintf("%s %s %s %d/%d",
			activeStyle.Render("▶"), name, a.bar.ViewAs(fraction(row.written, row.req.Count)), row.written, row.req.Count)
	case stateDone:
		return fmt.Sprintf("%s %s ×%d · %d lines", doneStyle.Render("✓"), name, row.req.Count, row.stats.OutputLines)
	case stateFailed:
		return fmt.Sprintf("%s %s · %v", failStyle.Render("✗"), name, row.err)
	default:
		return pendingStyle.Render(fmt.Sprintf("· %s ×%d", name, row.req.Count))
	}
}

func (a *App) renderLogPanel() string {
	if len(a.logTail) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s", fileName))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(a.logTail, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		MarginTop(1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(done) / float64(total)
}

package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/semshift/semshift/internal/engine"
)

// progressMsg carries an engine progress event into the TUI.
type progressMsg engine.Progress

// runDoneMsg signals the end of the migration run.
type runDoneMsg struct {
	result *engine.Result
	err    error
}

// RunModel is the bubbletea model for watching the migration run.
type RunModel struct {
	spinner  spinner.Model
	phases   []engine.Phase
	reached  map[engine.Phase]bool
	current  engine.Phase
	percent  int
	message  string
	result   *engine.Result
	err      error
	finished bool

	done      bool
	cancelled bool
	width     int
}

// NewRunModel creates a run watcher.
func NewRunModel() RunModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return RunModel{
		spinner: s,
		phases:  engine.Phases,
		reached: make(map[engine.Phase]bool),
		width:   80,
	}
}

func (m RunModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.done = true
			if !m.finished {
				m.cancelled = true
			}
			return m, tea.Quit
		case "enter":
			if m.finished {
				m.done = true
				return m, tea.Quit
			}
		}
		return m, nil

	case progressMsg:
		m.current = msg.Phase
		m.reached[msg.Phase] = true
		m.percent = msg.Percent
		m.message = msg.Message
		return m, nil

	case runDoneMsg:
		m.finished = true
		m.result = msg.result
		m.err = msg.err
		if msg.err == nil {
			m.percent = 100
		}
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m RunModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Step 4: Migration Run") + "\n\n")

	for _, p := range m.phases {
		icon := dimStyle.Render("..")
		switch {
		case m.finished && m.err == nil:
			icon = successStyle.Render("OK")
		case p == m.current && !m.finished:
			icon = m.spinner.View()
		case m.reached[p] && p != m.current:
			icon = successStyle.Render("OK")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", icon, p))
	}

	b.WriteString("\n")
	bar := renderProgressBar(m.percent, m.width-20)
	b.WriteString(fmt.Sprintf("  %s %d%%\n", bar, m.percent))
	if m.message != "" {
		b.WriteString(dimStyle.Render("  "+m.message) + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.finished && m.err != nil:
		b.WriteString(errStyle.Render(fmt.Sprintf("  Run failed: %v", m.err)) + "\n")
		b.WriteString(dimStyle.Render("  Press q to exit") + "\n")
	case m.finished:
		b.WriteString(successStyle.Render("  Migration run complete.") + "\n")
		if m.result != nil && len(m.result.Warnings) > 0 {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  %d warnings — see the report", len(m.result.Warnings))) + "\n")
		}
		b.WriteString(dimStyle.Render("  Press enter to continue") + "\n")
	default:
		b.WriteString(dimStyle.Render("  q: cancel run") + "\n")
	}

	return b.String()
}

// Result returns the run result, or nil when failed or cancelled.
func (m RunModel) Result() *engine.Result {
	return m.result
}

// Err returns the run error, if any.
func (m RunModel) Err() error {
	return m.err
}

// Cancelled returns true if the user cancelled before completion.
func (m RunModel) Cancelled() bool {
	return m.cancelled
}

func renderProgressBar(pct int, width int) string {
	if width < 10 {
		width = 10
	}
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

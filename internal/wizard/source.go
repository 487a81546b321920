package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/qlik"
)

// SourceResult is returned when the source step completes.
type SourceResult struct {
	Path     string
	App      *qlik.App
	Warnings []string
}

// SourceModel is the bubbletea model for picking the source application.
type SourceModel struct {
	path       textinput.Model
	extracting bool
	spinner    spinner.Model
	err        error
	statusMsg  string
	result     *SourceResult
	done       bool
	width      int
}

type extractDoneMsg struct {
	path     string
	app      *qlik.App
	warnings []string
	err      error
}

func NewSourceModel(initialPath string) SourceModel {
	ti := textinput.New()
	ti.Placeholder = "path/to/app.qvf"
	ti.CharLimit = 512
	ti.SetValue(initialPath)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return SourceModel{
		path:    ti,
		spinner: s,
		width:   80,
	}
}

func (m SourceModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m SourceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.extracting {
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "esc":
			m.done = true
			m.err = fmt.Errorf("cancelled")
			return m, tea.Quit

		case "enter":
			if err := validateSourcePath(m.path.Value()); err != nil {
				m.err = err
				m.statusMsg = err.Error()
				return m, nil
			}
			return m, m.startExtract()
		}

	case extractDoneMsg:
		m.extracting = false
		if msg.err != nil {
			m.err = msg.err
			m.statusMsg = fmt.Sprintf("Extraction failed: %v", msg.err)
			return m, nil
		}
		m.result = &SourceResult{Path: msg.path, App: msg.app, Warnings: msg.warnings}
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		if m.extracting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if !m.extracting {
		var cmd tea.Cmd
		m.path, cmd = m.path.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m SourceModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Step 1: Source Application") + "\n\n")
	b.WriteString(dimStyle.Render("  Path to a .qvf archive, .json export, or artifact directory:") + "\n\n")
	b.WriteString("  " + m.path.View() + "\n\n")

	if m.extracting {
		b.WriteString(fmt.Sprintf("  %s Reading application...\n", m.spinner.View()))
	} else if m.err != nil {
		b.WriteString(errStyle.Render("  "+m.statusMsg) + "\n")
		b.WriteString(dimStyle.Render("  Fix the path and press Enter to retry\n"))
	} else {
		b.WriteString(dimStyle.Render("  enter to load • esc to cancel\n"))
	}

	return b.String()
}

// Result returns the extraction result, or nil if not completed.
func (m SourceModel) Result() *SourceResult {
	return m.result
}

// Cancelled returns true if the user cancelled.
func (m SourceModel) Cancelled() bool {
	return m.done && m.result == nil
}

func (m *SourceModel) startExtract() tea.Cmd {
	m.extracting = true
	m.err = nil
	m.statusMsg = ""
	path := m.path.Value()

	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			app, warnings, err := extract.Read(path)
			if err != nil {
				return extractDoneMsg{err: err}
			}
			return extractDoneMsg{path: path, app: app, warnings: warnings}
		},
	)
}

// validateSourcePath checks the path exists and has a readable format
// before extraction is attempted.
func validateSourcePath(path string) error {
	if path == "" {
		return fmt.Errorf("enter a source path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %v", path, err)
	}
	if info.IsDir() {
		return nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qvf", ".json":
		return nil
	}
	return fmt.Errorf("unsupported format %q (use .qvf, .json, or a directory)", filepath.Ext(path))
}

// styles
var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	summaryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

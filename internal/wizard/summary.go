package wizard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/report"
)

// SummaryModel is the bubbletea model for the final report view.
type SummaryModel struct {
	viewport viewport.Model
	result   *engine.Result
	ready    bool
	done     bool
	width    int
	height   int
}

// NewSummaryModel creates the summary view for a finished run.
func NewSummaryModel(result *engine.Result) SummaryModel {
	return SummaryModel{
		result: result,
		width:  100,
		height: 24,
	}
}

func (m SummaryModel) Init() tea.Cmd {
	return nil
}

func (m SummaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-8)
			m.viewport.SetContent(m.content())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - 8
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc", "enter":
			m.done = true
			return m, tea.Quit
		}
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m SummaryModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Step 5: Summary") + "\n\n")

	if m.ready {
		b.WriteString(m.viewport.View() + "\n")
	} else {
		b.WriteString(m.content())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  ↑/↓ scroll • q close") + "\n")
	return b.String()
}

func (m SummaryModel) content() string {
	if m.result == nil {
		return "  No run results available.\n"
	}

	var b strings.Builder
	if m.result.Report != nil {
		b.WriteString(report.FormatText(m.result.Report))
		b.WriteString("\n")
	}
	if m.result.Estimate != nil {
		b.WriteString(fmt.Sprintf("Remaining manual effort: %.1f days (%s)\n\n",
			m.result.Estimate.TotalDays, m.result.Estimate.TShirtSize))
	}
	if m.result.ProjectPath != "" {
		b.WriteString(fmt.Sprintf("Project: %s\n", m.result.ProjectPath))
	}
	if m.result.GuidePath != "" {
		b.WriteString(fmt.Sprintf("Guide:   %s\n", m.result.GuidePath))
	}
	if m.result.ReportPath != "" {
		b.WriteString(fmt.Sprintf("Report:  %s\n", m.result.ReportPath))
	}
	return b.String()
}

// Done returns true when the user closed the summary.
func (m SummaryModel) Done() bool {
	return m.done
}

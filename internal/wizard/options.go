package wizard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Options are the run choices made in the options step.
type Options struct {
	Calendar    bool // inject a generated date table
	ReportPages bool // emit report pages from source sheets
	Guide       bool // write the manual-work guide
}

type optionEntry struct {
	label   string
	detail  string
	enabled bool
}

// OptionsModel is the bubbletea model for toggling run options.
type OptionsModel struct {
	entries   []optionEntry
	cursor    int
	done      bool
	cancelled bool
	width     int
}

// NewOptionsModel creates the options toggle list.
func NewOptionsModel(initial Options) OptionsModel {
	return OptionsModel{
		entries: []optionEntry{
			{label: "Date table", detail: "generate a Calendar table with a date hierarchy", enabled: initial.Calendar},
			{label: "Report pages", detail: "recreate source sheets as report pages", enabled: initial.ReportPages},
			{label: "Migration guide", detail: "write MIGRATION_GUIDE.md for the manual work", enabled: initial.Guide},
		},
		width: 80,
	}
}

func (m OptionsModel) Init() tea.Cmd {
	return nil
}

func (m OptionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancelled = true
			m.done = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}

		case " ":
			m.entries[m.cursor].enabled = !m.entries[m.cursor].enabled

		case "enter":
			m.done = true
			return m, tea.Quit
		}
	}

	return m, nil
}

func (m OptionsModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Step 2: Output Options") + "\n\n")

	for i, e := range m.entries {
		checkbox := "[ ]"
		if e.enabled {
			checkbox = selectedStyle.Render("[x]")
		}
		cursor := "  "
		if i == m.cursor {
			cursor = highlightStyle.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s %-16s %s\n",
			cursor, checkbox, e.label, dimStyle.Render(e.detail)))
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  space toggle • enter confirm • q cancel") + "\n")

	return b.String()
}

// Result returns the chosen options, or nil if cancelled.
func (m OptionsModel) Result() *Options {
	if m.cancelled {
		return nil
	}
	return &Options{
		Calendar:    m.entries[0].enabled,
		ReportPages: m.entries[1].enabled,
		Guide:       m.entries[2].enabled,
	}
}

// Cancelled returns true if the user cancelled.
func (m OptionsModel) Cancelled() bool {
	return m.cancelled
}

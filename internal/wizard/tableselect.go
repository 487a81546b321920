package wizard

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/selection"
)

// TableSelectResult is returned when the user confirms their selection.
type TableSelectResult struct {
	Selected []qlik.Table
}

// tableEntry represents a table row in the selector.
type tableEntry struct {
	table    qlik.Table
	selected bool
	visible  bool // false when filtered out by search
}

// TableSelectModel is the bubbletea model for interactive table selection.
type TableSelectModel struct {
	app     *qlik.App
	entries []tableEntry
	cursor  int

	filter    string
	filtering bool

	done      bool
	cancelled bool
	width     int
	height    int

	// precomputed visible indexes for fast cursor navigation
	visibleIdxs []int
}

// NewTableSelectModel creates a table selector from the extracted app.
// preSelected optionally pre-selects tables by name (for resume); nil
// selects everything.
func NewTableSelectModel(app *qlik.App, preSelected []string) TableSelectModel {
	preMap := make(map[string]bool, len(preSelected))
	for _, n := range preSelected {
		preMap[n] = true
	}

	entries := make([]tableEntry, len(app.Tables))
	for i, t := range app.Tables {
		entries[i] = tableEntry{
			table:    t,
			selected: len(preSelected) == 0 || preMap[t.Name],
			visible:  true,
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].table.Name < entries[j].table.Name
	})

	m := TableSelectModel{
		app:     app,
		entries: entries,
		width:   100,
		height:  24,
	}
	m.recomputeVisible()
	return m
}

func (m TableSelectModel) Init() tea.Cmd {
	return nil
}

func (m TableSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m TableSelectModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.cancelled = true
		m.done = true
		return m, tea.Quit

	case "up", "k":
		m.moveCursor(-1)

	case "down", "j":
		m.moveCursor(1)

	case " ":
		m.toggleCurrent()

	case "a":
		m.selectAll()

	case "n":
		m.deselectAll()

	case "/":
		m.filtering = true
		m.filter = ""
		return m, nil

	case "d":
		m.selectAssociated()

	case "enter":
		if m.selectedCount() == 0 {
			return m, nil // don't allow empty selection
		}
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m TableSelectModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter = ""
		m.applyFilter()
		return m, nil

	case "enter":
		m.filtering = false
		return m, nil

	case "backspace":
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
			m.applyFilter()
		}
		return m, nil

	default:
		if len(msg.String()) == 1 {
			m.filter += msg.String()
			m.applyFilter()
		}
		return m, nil
	}
}

func (m TableSelectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Step 3: Select Tables") + "\n\n")

	if m.filtering {
		b.WriteString(highlightStyle.Render("  Filter: ") + m.filter + "█\n\n")
	} else if m.filter != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Filter: %s (/ to change, esc in filter to clear)", m.filter)) + "\n\n")
	}

	header := fmt.Sprintf("  %-3s %-30s %8s", "", "Table", "Fields")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(m.width-4, 50))) + "\n")

	listHeight := m.height - 12
	if listHeight < 5 {
		listHeight = 5
	}

	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(m.visibleIdxs) {
		end = len(m.visibleIdxs)
	}

	if len(m.visibleIdxs) == 0 {
		b.WriteString(dimStyle.Render("  No tables match the filter\n"))
	}

	for vi := start; vi < end; vi++ {
		idx := m.visibleIdxs[vi]
		e := m.entries[idx]

		checkbox := "[ ]"
		if e.selected {
			checkbox = selectedStyle.Render("[x]")
		}

		cursor := "  "
		nameStyle := lipgloss.NewStyle()
		if vi == m.cursor {
			cursor = highlightStyle.Render("> ")
			nameStyle = nameStyle.Bold(true)
		}

		name := truncate(e.table.Name, 30)
		line := fmt.Sprintf("%s%s %-30s %8d",
			cursor, checkbox, nameStyle.Render(name), len(e.table.Fields))
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")

	summary := fmt.Sprintf("  Selected: %d of %d tables", m.selectedCount(), len(m.entries))
	b.WriteString(summaryStyle.Render(summary) + "\n")

	// Severed association warnings
	orphans := selection.FindOrphans(m.app, m.rules())
	if len(orphans) > 0 {
		shown := orphans
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, o := range shown {
			b.WriteString(warnStyle.Render(fmt.Sprintf(
				"  ! %s.%s references %s (not selected)", o.Table, o.Field, o.ReferencedTable)) + "\n")
		}
		if len(orphans) > 3 {
			b.WriteString(warnStyle.Render(fmt.Sprintf(
				"  ! ...and %d more severed associations", len(orphans)-3)) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  space toggle • a all • n none • / filter • d add associated • enter confirm • q quit") + "\n")

	return b.String()
}

// Result returns the selection result, or nil if cancelled.
func (m TableSelectModel) Result() *TableSelectResult {
	if m.cancelled {
		return nil
	}
	selected := m.getSelected()
	if len(selected) == 0 {
		return nil
	}
	return &TableSelectResult{Selected: selected}
}

// Cancelled returns true if the user cancelled.
func (m TableSelectModel) Cancelled() bool {
	return m.cancelled
}

// SelectedNames returns the names of selected tables.
func (m *TableSelectModel) SelectedNames() []string {
	var names []string
	for _, e := range m.entries {
		if e.selected {
			names = append(names, e.table.Name)
		}
	}
	return names
}

// rules builds selection rules matching the current checkbox state.
func (m *TableSelectModel) rules() selection.Rules {
	if m.selectedCount() == len(m.entries) {
		return selection.Rules{}
	}
	return selection.Rules{IncludeTables: m.SelectedNames()}
}

// --- internal helpers ---

func (m *TableSelectModel) moveCursor(delta int) {
	if len(m.visibleIdxs) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.visibleIdxs) {
		m.cursor = len(m.visibleIdxs) - 1
	}
}

func (m *TableSelectModel) toggleCurrent() {
	if m.cursor < 0 || m.cursor >= len(m.visibleIdxs) {
		return
	}
	idx := m.visibleIdxs[m.cursor]
	m.entries[idx].selected = !m.entries[idx].selected
}

func (m *TableSelectModel) selectAll() {
	for _, vi := range m.visibleIdxs {
		m.entries[vi].selected = true
	}
}

func (m *TableSelectModel) deselectAll() {
	for _, vi := range m.visibleIdxs {
		m.entries[vi].selected = false
	}
}

// selectAssociated adds every table that a selected table is associated
// with, so confirmed selections keep their relationships intact.
func (m *TableSelectModel) selectAssociated() {
	selectedNames := make(map[string]bool)
	for _, e := range m.entries {
		if e.selected {
			selectedNames[e.table.Name] = true
		}
	}

	needed := make(map[string]bool)
	for _, a := range m.app.Associations {
		if selectedNames[a.FromTable] && !selectedNames[a.ToTable] {
			needed[a.ToTable] = true
		}
		if selectedNames[a.ToTable] && !selectedNames[a.FromTable] {
			needed[a.FromTable] = true
		}
	}

	for i := range m.entries {
		if needed[m.entries[i].table.Name] {
			m.entries[i].selected = true
		}
	}
}

func (m *TableSelectModel) applyFilter() {
	lower := strings.ToLower(m.filter)
	for i := range m.entries {
		if m.filter == "" {
			m.entries[i].visible = true
		} else {
			m.entries[i].visible = strings.Contains(
				strings.ToLower(m.entries[i].table.Name), lower)
		}
	}
	m.recomputeVisible()
	if m.cursor >= len(m.visibleIdxs) {
		m.cursor = max(0, len(m.visibleIdxs)-1)
	}
}

func (m *TableSelectModel) recomputeVisible() {
	m.visibleIdxs = m.visibleIdxs[:0]
	for i, e := range m.entries {
		if e.visible {
			m.visibleIdxs = append(m.visibleIdxs, i)
		}
	}
}

func (m *TableSelectModel) selectedCount() int {
	n := 0
	for _, e := range m.entries {
		if e.selected {
			n++
		}
	}
	return n
}

func (m *TableSelectModel) getSelected() []qlik.Table {
	var tables []qlik.Table
	for _, e := range m.entries {
		if e.selected {
			tables = append(tables, e.table)
		}
	}
	return tables
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

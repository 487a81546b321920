package wizard

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestOptionsDefaults(t *testing.T) {
	m := NewOptionsModel(Options{Calendar: true, ReportPages: true, Guide: true})
	result, _ := m.Update(keyMsg("enter"))
	om := result.(OptionsModel)

	r := om.Result()
	if r == nil {
		t.Fatal("result should not be nil after enter")
	}
	if !r.Calendar || !r.ReportPages || !r.Guide {
		t.Errorf("defaults should all be enabled, got %+v", *r)
	}
}

func TestOptionsToggle(t *testing.T) {
	m := NewOptionsModel(Options{Calendar: true, ReportPages: true, Guide: true})

	// Move to the second entry and toggle it off.
	result, _ := m.Update(keyMsg("j"))
	result, _ = result.(OptionsModel).Update(keyMsg("space"))
	result, _ = result.(OptionsModel).Update(keyMsg("enter"))
	om := result.(OptionsModel)

	r := om.Result()
	if r == nil {
		t.Fatal("result should not be nil")
	}
	if !r.Calendar {
		t.Error("Calendar should remain enabled")
	}
	if r.ReportPages {
		t.Error("ReportPages should be toggled off")
	}
	if !r.Guide {
		t.Error("Guide should remain enabled")
	}
}

func TestOptionsCancelled(t *testing.T) {
	m := NewOptionsModel(Options{})
	result, _ := m.Update(keyMsg("q"))
	om := result.(OptionsModel)
	if !om.Cancelled() {
		t.Error("q should cancel")
	}
	if om.Result() != nil {
		t.Error("cancelled options should have nil result")
	}
}

func TestOptionsView(t *testing.T) {
	m := NewOptionsModel(Options{Calendar: true})
	v := m.View()
	if !strings.Contains(v, "Step 2: Output Options") {
		t.Error("view should contain title")
	}
	if !strings.Contains(v, "Date table") {
		t.Error("view should list the date table option")
	}
	if !strings.Contains(v, "Migration guide") {
		t.Error("view should list the guide option")
	}
}

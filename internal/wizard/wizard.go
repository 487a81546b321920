// Package wizard implements the interactive step-by-step migration flow.
package wizard

import (
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/semshift/semshift/internal/config"
	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/selection"
	"github.com/semshift/semshift/internal/state"
)

// Wizard orchestrates the multi-step interactive migration setup.
type Wizard struct {
	state     *state.State
	statePath string
	logger    *slog.Logger

	// Accumulated data
	cfg     *config.Config
	app     *qlik.App
	options *Options
	result  *engine.Result
}

// New creates a new Wizard, loading any saved state for resume.
func New(statePath string, logger *slog.Logger) (*Wizard, error) {
	s, err := state.Load(statePath)
	if err != nil {
		return nil, fmt.Errorf("loading wizard state: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Wizard{
		state:     s,
		statePath: statePath,
		logger:    logger,
	}, nil
}

// Run executes the wizard from the current step through the final summary.
func (w *Wizard) Run() error {
	step := w.state.CurrentStep

	// Step 1: Source application
	if step == state.StepExtract {
		if err := w.runSource(); err != nil {
			return err
		}
		step = w.state.CurrentStep
	}

	// Steps 2+3: Output options, table selection
	if step == state.StepConvert {
		if err := w.runOptions(); err != nil {
			return err
		}
		if err := w.runTableSelect(); err != nil {
			return err
		}
		step = w.state.CurrentStep
	}

	// Step 4: Migration run
	if step == state.StepGenerate {
		if err := w.runMigration(); err != nil {
			return err
		}
		step = w.state.CurrentStep
	}

	// Step 5: Summary
	if step == state.StepComplete && w.result != nil {
		if err := w.runSummary(); err != nil {
			return err
		}
	}

	return nil
}

func (w *Wizard) runSource() error {
	m := NewSourceModel(w.state.SourcePath)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running source step: %w", err)
	}

	sm := finalModel.(SourceModel)
	if sm.Cancelled() {
		return fmt.Errorf("cancelled")
	}

	result := sm.Result()
	if result == nil {
		return fmt.Errorf("no source selected")
	}

	w.app = result.App
	w.state.SourcePath = result.Path
	w.state.CompleteStep(state.StepExtract, state.StepConvert)
	if err := w.state.Save(w.statePath); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	fmt.Printf("\nExtracted %q: %d tables, %d measures, %d sheets.\n\n",
		result.App.Name, len(result.App.Tables), len(result.App.Measures), len(result.App.Sheets))
	for _, warn := range result.Warnings {
		fmt.Printf("  warning: %s\n", warn)
	}
	return nil
}

func (w *Wizard) runOptions() error {
	initial := Options{Calendar: true, ReportPages: true, Guide: true}

	m := NewOptionsModel(initial)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running options step: %w", err)
	}

	om := finalModel.(OptionsModel)
	if om.Cancelled() {
		return fmt.Errorf("cancelled")
	}

	result := om.Result()
	if result == nil {
		return fmt.Errorf("no options chosen")
	}
	w.options = result
	return nil
}

func (w *Wizard) runTableSelect() error {
	if err := w.ensureApp(); err != nil {
		return err
	}

	m := NewTableSelectModel(w.app, w.state.SelectedTables)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running table selection: %w", err)
	}

	tsm := finalModel.(TableSelectModel)
	if tsm.Cancelled() {
		return fmt.Errorf("cancelled")
	}

	result := tsm.Result()
	if result == nil {
		return fmt.Errorf("no tables selected")
	}

	names := make([]string, len(result.Selected))
	for i, t := range result.Selected {
		names[i] = t.Name
	}
	w.state.SelectedTables = names
	w.state.CompleteStep(state.StepConvert, state.StepGenerate)
	if err := w.state.Save(w.statePath); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	fmt.Printf("\nSelected %d tables for migration.\n", len(result.Selected))
	return nil
}

func (w *Wizard) runMigration() error {
	if err := w.ensureApp(); err != nil {
		return err
	}
	if w.options == nil {
		w.options = &Options{Calendar: true, ReportPages: true, Guide: true}
	}

	cfg := config.Default(w.state.SourcePath)
	cfg.Model.Calendar = w.options.Calendar

	eng := engine.New(cfg, w.logger)
	eng.NoGuide = !w.options.Guide
	eng.Rules = w.migrationRules()

	m := NewRunModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	err := eng.Start(
		func(pr engine.Progress) {
			p.Send(progressMsg(pr))
		},
		func(res *engine.Result, runErr error) {
			p.Send(runDoneMsg{result: res, err: runErr})
		},
	)
	if err != nil {
		return fmt.Errorf("starting migration: %w", err)
	}

	finalModel, err := p.Run()
	if err != nil {
		eng.Abort()
		return fmt.Errorf("running migration: %w", err)
	}

	rm := finalModel.(RunModel)
	if rm.Cancelled() {
		eng.Abort()
		return fmt.Errorf("cancelled")
	}
	if rm.Err() != nil {
		w.state.MigrationStatus = "failed"
		if saveErr := w.state.Save(w.statePath); saveErr != nil {
			w.logger.Warn("saving state after failed run", "error", saveErr)
		}
		return fmt.Errorf("migration failed: %w", rm.Err())
	}

	w.result = rm.Result()
	if w.result != nil {
		w.state.ProjectPath = w.result.ProjectPath
		w.state.GuidePath = w.result.GuidePath
		w.state.ReportPath = w.result.ReportPath
	}
	w.state.MigrationStatus = "completed"
	w.state.CompleteStep(state.StepGenerate, state.StepValidate)
	w.state.CompleteStep(state.StepValidate, state.StepReport)
	w.state.CompleteStep(state.StepReport, state.StepComplete)
	if err := w.state.Save(w.statePath); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	return nil
}

func (w *Wizard) runSummary() error {
	m := NewSummaryModel(w.result)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running summary: %w", err)
	}

	if w.result != nil {
		fmt.Printf("\nProject written to %s\n", w.result.ProjectPath)
		if w.result.GuidePath != "" {
			fmt.Printf("Guide: %s\n", w.result.GuidePath)
		}
	}
	return nil
}

// migrationRules builds selection rules from the wizard's choices.
func (w *Wizard) migrationRules() selection.Rules {
	var r selection.Rules
	if len(w.state.SelectedTables) > 0 && w.app != nil &&
		len(w.state.SelectedTables) < len(w.app.Tables) {
		r.IncludeTables = w.state.SelectedTables
	}
	if w.options != nil && !w.options.ReportPages {
		r.ExcludeSheets = []string{"*"}
	}
	return r
}

// ensureApp re-extracts the source when resuming without one in memory.
func (w *Wizard) ensureApp() error {
	if w.app != nil {
		return nil
	}
	if w.state.SourcePath == "" {
		return fmt.Errorf("no source application; run the source step first")
	}
	app, warnings, err := extract.Read(w.state.SourcePath)
	if err != nil {
		return fmt.Errorf("re-reading source application: %w", err)
	}
	w.app = app
	for _, warn := range warnings {
		w.logger.Warn("source extraction", "warning", warn)
	}
	return nil
}

// RunTableSelectStandalone runs only the table selection step.
// Used by the `semshift select` subcommand.
func RunTableSelectStandalone(sourcePath, statePath string) error {
	app, _, err := extract.Read(sourcePath)
	if err != nil {
		return fmt.Errorf("reading source application: %w", err)
	}

	st, err := state.Load(statePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	m := NewTableSelectModel(app, st.SelectedTables)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("running table selection: %w", err)
	}

	tsm := finalModel.(TableSelectModel)
	if tsm.Cancelled() {
		return fmt.Errorf("cancelled")
	}

	result := tsm.Result()
	if result == nil {
		return fmt.Errorf("no tables selected")
	}

	names := make([]string, len(result.Selected))
	for i, t := range result.Selected {
		names[i] = t.Name
	}
	st.SelectedTables = names
	st.SourcePath = sourcePath
	if err := st.Save(statePath); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}

	fmt.Printf("Selected %d tables for migration.\n", len(result.Selected))
	return nil
}

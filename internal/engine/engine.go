// Package engine orchestrates a full migration run: extract, infer,
// translate, assemble, emit, report. The engine owns no global state;
// warnings accumulate into the result and progress events fan out to an
// optional callback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/semshift/semshift/internal/config"
	"github.com/semshift/semshift/internal/dax"
	"github.com/semshift/semshift/internal/enrich"
	"github.com/semshift/semshift/internal/estimate"
	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/guide"
	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/modelgen"
	"github.com/semshift/semshift/internal/mquery"
	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/report"
	"github.com/semshift/semshift/internal/selection"
	"github.com/semshift/semshift/internal/tmdl"
	"github.com/semshift/semshift/internal/typemap"
	"github.com/semshift/semshift/internal/validation"
	"github.com/semshift/semshift/internal/visuals"
)

// Phase is one stage of a migration run.
type Phase string

const (
	PhaseExtract   Phase = "extract"
	PhaseInfer     Phase = "infer"
	PhaseTranslate Phase = "translate"
	PhaseAssemble  Phase = "assemble"
	PhaseEmit      Phase = "emit"
	PhaseReport    Phase = "report"
)

// Phases lists the run phases in order.
var Phases = []Phase{PhaseExtract, PhaseInfer, PhaseTranslate, PhaseAssemble, PhaseEmit, PhaseReport}

// Progress is one progress event.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// ProgressFunc receives progress events during a run.
type ProgressFunc func(Progress)

// Result is the outcome of one migration run.
type Result struct {
	App         *qlik.App               `json:"-"`
	Model       *pbi.Model              `json:"-"`
	Estimate    *estimate.Plan          `json:"estimate,omitempty"`
	Validation  *validation.Result      `json:"validation,omitempty"`
	Report      *report.MigrationReport `json:"report,omitempty"`
	ProjectPath string                  `json:"project_path,omitempty"`
	GuidePath   string                  `json:"guide_path,omitempty"`
	ReportPath  string                  `json:"report_path,omitempty"`
	Warnings    []string                `json:"warnings,omitempty"`
}

// Engine runs migrations for one config.
type Engine struct {
	Config     *config.Config
	Logger     *slog.Logger
	Rules      selection.Rules
	OnProgress ProgressFunc
	NoGuide    bool

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	last     *Result
	lastErr  error
	runHooks ProgressFunc
}

// New creates an engine. A nil logger falls back to slog.Default.
func New(cfg *config.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Config: cfg, Logger: logger}
}

func (e *Engine) step(phase Phase, msg string) {
	idx := 0
	for i, p := range Phases {
		if p == phase {
			idx = i
		}
	}
	p := Progress{Phase: phase, Percent: idx * 100 / len(Phases), Message: msg}
	e.Logger.Info("phase", "phase", string(phase), "message", msg)
	if e.OnProgress != nil {
		e.OnProgress(p)
	}
	e.mu.Lock()
	hook := e.runHooks
	e.mu.Unlock()
	if hook != nil {
		hook(p)
	}
}

// Run executes all phases. Cancellation is honored between phases; the
// result of a completed run is retained for later inspection.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	res, err := e.run(ctx)
	e.mu.Lock()
	e.last, e.lastErr = res, err
	e.mu.Unlock()
	return res, err
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	cfg := e.Config
	if cfg == nil {
		return nil, fmt.Errorf("no config set")
	}
	res := &Result{}

	// Extract.
	e.step(PhaseExtract, "reading "+cfg.Source.Path)
	app, warnings, err := extract.Read(cfg.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	res.Warnings = append(res.Warnings, warnings...)
	for _, o := range selection.FindOrphans(app, e.Rules) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"selection: %s.%s references excluded table %s", o.Table, o.Field, o.ReferencedTable))
	}
	app = selection.Apply(app, e.Rules)
	res.App = app

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Infer.
	e.step(PhaseInfer, "inferring schema and associations")
	tables, w := infer.ExtractSchema(app)
	res.Warnings = append(res.Warnings, w...)
	assocs, w := infer.InferAssociations(tables, app.Associations)
	res.Warnings = append(res.Warnings, w...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Translate.
	e.step(PhaseTranslate, "translating expressions")
	measures := dax.TranslateMeasures(app.Measures, dax.Options{ColumnTables: tables.ColumnTables()})
	for _, m := range measures {
		for _, mw := range m.Warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("measure %s: %s", m.Name, mw))
		}
	}
	_, scriptReport := mquery.ConvertScript(app.LoadScript)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Assemble.
	e.step(PhaseAssemble, "assembling semantic model")
	var tm *typemap.TypeMap
	if cfg.Model.TypeOverrides != "" {
		tm, err = typemap.LoadYAML(cfg.Model.TypeOverrides)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("type overrides: %v", err))
			tm = nil
		}
	}
	model, w := modelgen.Assemble(tables, assocs, app.Measures, app.Dimensions, modelgen.Options{
		Name:       cfg.Output.ProjectName,
		Culture:    cfg.Model.Culture,
		TypeMap:    tm,
		FieldTypes: app.FieldTypes(),
	})
	res.Warnings = append(res.Warnings, w...)

	res.Warnings = append(res.Warnings, enrich.Apply(ctx, cfg.Enrich.DSN, model)...)

	queries, w := mquery.GenerateAll(app.Datasources)
	res.Warnings = append(res.Warnings, w...)
	attachPartitions(model, queries)
	res.Model = model

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Emit.
	e.step(PhaseEmit, "writing project to "+cfg.Output.Dir)
	res.ProjectPath, err = tmdl.WriteProject(cfg.Output.Dir, cfg.Output.ProjectName, model, tmdl.Options{
		Calendar:      cfg.Model.Calendar,
		CalendarStart: cfg.Model.CalendarStart,
		CalendarEnd:   cfg.Model.CalendarEnd,
		Parameters:    cfg.Model.Parameters,
		Culture:       cfg.Model.Culture,
	})
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	if _, err := tmdl.WriteTheme(cfg.Output.Dir, cfg.Output.ProjectName); err != nil {
		return nil, fmt.Errorf("emit theme: %w", err)
	}
	if len(app.Sheets) > 0 || len(app.Visualizations) > 0 {
		w, err := visuals.WritePages(cfg.Output.Dir, cfg.Output.ProjectName, app, model)
		if err != nil {
			return nil, fmt.Errorf("emit pages: %w", err)
		}
		res.Warnings = append(res.Warnings, w...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Report.
	e.step(PhaseReport, "writing report and guide")
	res.Validation = validation.CheckModel(model)
	res.Report = report.Generate(app, model, measures, &scriptReport, res.Validation, res.Warnings)
	res.Estimate = estimate.Estimate(app)

	if !e.NoGuide {
		res.GuidePath, err = guide.WriteGuide(cfg.Output.Dir, app, res.Report)
		if err != nil {
			return nil, fmt.Errorf("writing guide: %w", err)
		}
	}
	res.ReportPath = filepath.Join(cfg.Output.Dir, "report.json")
	if err := report.WriteJSON(res.Report, res.ReportPath); err != nil {
		return nil, err
	}
	if err := report.WriteText(res.Report, filepath.Join(cfg.Output.Dir, "report.txt")); err != nil {
		return nil, err
	}

	return res, nil
}

// attachPartitions sets each table's partition from the generated M
// queries, matched by table name.
func attachPartitions(model *pbi.Model, queries map[string]string) {
	for i := range model.Tables {
		t := &model.Tables[i]
		if t.Partition != nil {
			continue
		}
		if q, ok := queries[t.Name]; ok {
			t.Partition = &pbi.Partition{Mode: "import", Source: q}
		}
	}
}

// Start launches Run on a background goroutine. It fails when a run is
// already in progress. done, when non-nil, receives the finished run's
// result and error.
func (e *Engine) Start(callback ProgressFunc, done func(*Result, error)) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("a migration run is already in progress")
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.running = true
	e.cancel = cancel
	e.runHooks = callback
	e.mu.Unlock()

	go func() {
		defer func() {
			e.mu.Lock()
			e.running = false
			e.cancel = nil
			e.runHooks = nil
			e.mu.Unlock()
			cancel()
		}()
		res, err := e.Run(ctx)
		if err != nil {
			e.Logger.Error("migration run failed", "error", err)
		}
		if done != nil {
			done(res, err)
		}
	}()
	return nil
}

// Abort cancels an in-flight run, if any.
func (e *Engine) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Last returns the most recent run's result and error.
func (e *Engine) Last() (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.lastErr
}

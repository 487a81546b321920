// Package state persists migration progress between CLI invocations.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/semshift/semshift/internal/config"
)

const DefaultPath = "~/.semshift/state.yaml"

// Step is one stage of the migration pipeline.
type Step string

const (
	StepExtract  Step = "extract"
	StepConvert  Step = "convert"
	StepGenerate Step = "generate"
	StepValidate Step = "validate"
	StepReport   Step = "report"
	StepComplete Step = "complete"
)

// State holds migration progress and the paths of produced artifacts.
type State struct {
	CurrentStep Step               `yaml:"current_step"`
	LastUpdated time.Time          `yaml:"last_updated"`
	Steps       map[Step]StepState `yaml:"steps,omitempty"`

	SourcePath  string `yaml:"source_path,omitempty"`
	ConfigPath  string `yaml:"config_path,omitempty"`
	AppPath     string `yaml:"app_path,omitempty"`
	ModelPath   string `yaml:"model_path,omitempty"`
	ProjectPath string `yaml:"project_path,omitempty"`
	GuidePath   string `yaml:"guide_path,omitempty"`
	ReportPath  string `yaml:"report_path,omitempty"`

	SelectedTables []string `yaml:"selected_tables,omitempty"`
	SelectedSheets []string `yaml:"selected_sheets,omitempty"`

	MigrationStatus string `yaml:"migration_status,omitempty"`
}

// StepState tracks the state of a single pipeline step.
type StepState struct {
	Status      string    `yaml:"status"` // pending, in_progress, complete, skipped
	CompletedAt time.Time `yaml:"completed_at,omitempty"`
}

// Load reads the state from disk. A missing file yields a fresh state,
// not an error.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.Steps == nil {
		s.Steps = make(map[Step]StepState)
	}

	return s, nil
}

// Save writes the state to disk.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates a fresh state.
func New() *State {
	return &State{
		CurrentStep: StepExtract,
		LastUpdated: time.Now(),
		Steps:       make(map[Step]StepState),
	}
}

// CompleteStep marks a step as complete and advances to the next.
func (s *State) CompleteStep(step Step, next Step) {
	s.Steps[step] = StepState{
		Status:      "complete",
		CompletedAt: time.Now(),
	}
	s.CurrentStep = next
}

// IsStepComplete returns true if the given step has been completed.
func (s *State) IsStepComplete(step Step) bool {
	ss, ok := s.Steps[step]
	return ok && ss.Status == "complete"
}

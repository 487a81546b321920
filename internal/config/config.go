package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/semshift/semshift/internal/tmdl"
)

const (
	CurrentVersion = 1
	DefaultPath    = "semshift.yaml"
)

// Config is the top-level configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Source  SourceConfig `yaml:"source" json:"source"`
	Output  OutputConfig `yaml:"output,omitempty" json:"output"`
	Model   ModelConfig  `yaml:"model,omitempty" json:"model"`
	Enrich  EnrichConfig `yaml:"enrich,omitempty" json:"enrich"`
	Serve   ServeConfig  `yaml:"serve,omitempty" json:"serve"`
	Logging LogConfig    `yaml:"logging,omitempty" json:"logging"`
}

// SourceConfig names the Qlik application to migrate.
type SourceConfig struct {
	Path string `yaml:"path" json:"path"`
	Type string `yaml:"type,omitempty" json:"type,omitempty"` // qvf, json, or empty to detect by extension
}

// OutputConfig defines where the project is emitted.
type OutputConfig struct {
	Dir         string `yaml:"dir,omitempty" json:"dir,omitempty"`
	ProjectName string `yaml:"project_name,omitempty" json:"project_name,omitempty"`
}

// ModelConfig tunes the generated semantic model.
type ModelConfig struct {
	Culture       string           `yaml:"culture,omitempty" json:"culture,omitempty"`
	Calendar      bool             `yaml:"calendar,omitempty" json:"calendar,omitempty"`
	CalendarStart int              `yaml:"calendar_start,omitempty" json:"calendar_start,omitempty"`
	CalendarEnd   int              `yaml:"calendar_end,omitempty" json:"calendar_end,omitempty"`
	Parameters    []tmdl.Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	TypeOverrides string           `yaml:"type_overrides,omitempty" json:"type_overrides,omitempty"` // path to a YAML overrides file
}

// EnrichConfig points at the source warehouse for authoritative column
// types. Empty DSN disables enrichment.
type EnrichConfig struct {
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
}

// ServeConfig defines the status server.
type ServeConfig struct {
	Port int `yaml:"port,omitempty" json:"port,omitempty"` // default 8080
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty" json:"format,omitempty"` // text or json
	File   string `yaml:"file,omitempty" json:"file,omitempty"`     // optional log file tee
}

// Load reads and parses the config file from the given path. Unknown
// keys are rejected so typos surface at load, not as silent defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}
	if cfg.Source.Path == "" {
		return nil, fmt.Errorf("source.path is required")
	}

	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Default returns a config pre-filled with every default applied, ready
// for `semshift init` to write out.
func Default(sourcePath string) *Config {
	cfg := &Config{
		Version: CurrentVersion,
		Source:  SourceConfig{Path: sourcePath},
		Model:   ModelConfig{Calendar: true},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.ProjectName == "" && c.Source.Path != "" {
		base := filepath.Base(c.Source.Path)
		c.Output.ProjectName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if c.Model.Culture == "" {
		c.Model.Culture = "en-US"
	}
	if c.Serve.Port == 0 {
		c.Serve.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Enrich.DSN, err = ResolveValue(c.Enrich.DSN)
	if err != nil {
		return fmt.Errorf("enrich dsn: %w", err)
	}
	return nil
}

// ResolveValue resolves a ${PROVIDER:ref} secret reference in a string
// value; plain strings pass through unchanged.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(val)
	if matches == nil {
		return val, nil
	}
	resolve, ok := secretProviders[matches[1]]
	if !ok {
		return "", fmt.Errorf("unknown secrets provider: %s", matches[1])
	}
	v, err := resolve(matches[2])
	if err != nil {
		return "", fmt.Errorf("%s secret %q: %w", matches[1], matches[2], err)
	}
	return v, nil
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

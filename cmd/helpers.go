package cmd

import (
	"fmt"

	"github.com/semshift/semshift/internal/config"
	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/state"
)

// resolveApp extracts the source named on the command line, or falls
// back to the path recorded in state or config.
func resolveApp(args []string) (*qlik.App, error) {
	path, err := resolveSourcePath(args)
	if err != nil {
		return nil, err
	}
	app, warnings, err := extract.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading source application: %w", err)
	}
	for _, w := range warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return app, nil
}

func resolveSourcePath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	st, err := state.Load("")
	if err == nil && st.SourcePath != "" {
		return st.SourcePath, nil
	}

	if cfg, err := config.Load(cfgFile); err == nil && cfg.Source.Path != "" {
		return cfg.Source.Path, nil
	}

	return "", fmt.Errorf("no source application; pass a path or run `semshift extract` first")
}

// resolveConfig loads the config file, or builds one from the state's
// recorded source when no file exists.
func resolveConfig() (*config.Config, error) {
	if cfg, err := config.Load(cfgFile); err == nil {
		return cfg, nil
	} else if cfgFile != "" {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	st, err := state.Load("")
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if st.SourcePath == "" {
		return nil, fmt.Errorf("no config file and no extracted source; run `semshift init` or `semshift extract`")
	}
	return config.Default(st.SourcePath), nil
}

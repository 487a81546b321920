// Package extract reads source applications into the qlik.App shape: QVF
// archives, engine JSON exports, and the intermediate per-concern JSON
// artifacts the pipeline persists between steps. Missing pieces of an app
// degrade to warnings; only a top-level shape that is not an app document
// at all fails, with qlik.ErrInvalidSchema.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

// Read loads an app from any supported input: a .qvf archive, a .json
// export, or a directory of intermediate artifacts.
func Read(path string) (*qlik.App, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading input: %w", err)
	}
	if info.IsDir() {
		return LoadIntermediate(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".qvf":
		return ReadQVF(path)
	case ".json":
		app, warnings, err := ReadJSONExport(path)
		return app, warnings, err
	default:
		return nil, nil, fmt.Errorf("unsupported input format %q (use .qvf, .json, or an artifact directory)", filepath.Ext(path))
	}
}

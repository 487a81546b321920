package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/semshift/semshift/internal/qlik"
)

// IntermediateFiles are the per-concern JSON artifacts the pipeline
// persists in the workdir between the extraction and generation steps.
var IntermediateFiles = []string{
	"app_metadata.json",
	"datasources.json",
	"dimensions.json",
	"measures.json",
	"visualizations.json",
	"sheets.json",
	"variables.json",
	"loadscript.json",
	"associations.json",
	"bookmarks.json",
	"master_items.json",
}

type appMetadataDoc struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SourceFile  string `json:"source_file,omitempty"`
}

// masterItemDoc indexes one master item across the dimension/measure
// artifacts, keeping cross-references stable for downstream consumers.
type masterItemDoc struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// WriteIntermediate persists the app as the full intermediate artifact
// set, one JSON file per concern, every file indented with sorted keys so
// repeated runs write byte-identical output.
func WriteIntermediate(dir string, app *qlik.App, sourceFile string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	var masterItems []masterItemDoc
	for _, d := range app.Dimensions {
		masterItems = append(masterItems, masterItemDoc{ID: d.ID, Name: d.Name, Kind: "dimension"})
	}
	for _, m := range app.Measures {
		masterItems = append(masterItems, masterItemDoc{ID: m.ID, Name: m.Name, Kind: "measure"})
	}

	docs := map[string]any{
		"app_metadata.json": appMetadataDoc{
			Name:        app.Name,
			Description: app.Description,
			SourceFile:  sourceFile,
		},
		"datasources.json":    emptySlice(app.Datasources),
		"dimensions.json":     emptySlice(app.Dimensions),
		"measures.json":       emptySlice(app.Measures),
		"visualizations.json": emptySlice(app.Visualizations),
		"sheets.json":         emptySlice(app.Sheets),
		"variables.json":      emptySlice(app.Variables),
		"loadscript.json":     map[string]string{"script": app.LoadScript},
		"associations.json":   emptySlice(app.Associations),
		"bookmarks.json":      emptySlice(app.Bookmarks),
		"master_items.json":   emptySlice(masterItems),
	}

	for _, name := range IntermediateFiles {
		data, err := json.MarshalIndent(docs[name], "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// LoadIntermediate reassembles an app from an artifact directory. Missing
// files default to empty; a file that exists but does not parse is a
// warning, not an error, so a hand-edited artifact set still loads.
func LoadIntermediate(dir string) (*qlik.App, []string, error) {
	app := &qlik.App{}
	var warnings []string

	load := func(name string, v any) bool {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if !os.IsNotExist(err) {
				warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			}
			return false
		}
		if err := json.Unmarshal(data, v); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", name, err))
			return false
		}
		return true
	}

	var meta appMetadataDoc
	if load("app_metadata.json", &meta) {
		app.Name = meta.Name
		app.Description = meta.Description
	}
	load("datasources.json", &app.Datasources)
	load("dimensions.json", &app.Dimensions)
	load("measures.json", &app.Measures)
	load("visualizations.json", &app.Visualizations)
	load("sheets.json", &app.Sheets)
	load("variables.json", &app.Variables)
	load("bookmarks.json", &app.Bookmarks)

	var script scriptDoc
	if load("loadscript.json", &script) {
		app.LoadScript = script.Script
	}

	var assocs []associationDoc
	if load("associations.json", &assocs) {
		for _, a := range assocs {
			app.Associations = append(app.Associations, a.toAssociation())
		}
	}

	if app.Name == "" && len(app.Measures) == 0 && app.LoadScript == "" {
		warnings = append(warnings, fmt.Sprintf("no intermediate artifacts found in %s", dir))
	}
	return app, warnings, nil
}

// emptySlice keeps nil slices serializing as [] rather than null.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semshift/semshift/internal/qlik"
)

// ReadJSONExport decodes an engine JSON export. Three shapes are
// recognized, tried in order: the tool's own intermediate-artifact
// dictionary, a Qlik Engine API export (qHyperCubeDef/qAppLayout), and a
// flat metadata document with tables/fields arrays. Anything else fails
// with qlik.ErrInvalidSchema.
func ReadJSONExport(path string) (*qlik.App, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading export: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, nil, fmt.Errorf("%w: export is not a JSON object: %v", qlik.ErrInvalidSchema, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	switch {
	case hasAny(probe, "tables", "datasources", "measures", "dimensions", "sheets", "loadScript", "loadscript"):
		app, err := qlik.Decode(data)
		if err != nil {
			return nil, nil, err
		}
		var warnings []string
		if app.Name == "" {
			app.Name = stem
		}
		if len(app.Visualizations) == 0 {
			app.Visualizations = VisualsFromSheets(app.Sheets)
		}
		return app, warnings, nil

	case hasAny(probe, "qHyperCubeDef", "qAppLayout"):
		return readEngineExport(probe, stem)

	default:
		return nil, nil, fmt.Errorf("%w: no recognizable app keys in %s", qlik.ErrInvalidSchema, filepath.Base(path))
	}
}

// readEngineExport pulls app metadata and the hypercube's dimensions and
// measures out of an Engine API layout tree.
func readEngineExport(probe map[string]json.RawMessage, stem string) (*qlik.App, []string, error) {
	app := &qlik.App{Name: stem}
	var warnings []string

	if raw, ok := probe["qAppLayout"]; ok {
		var layout appLayout
		if err := json.Unmarshal(raw, &layout); err != nil {
			warnings = append(warnings, fmt.Sprintf("qAppLayout unreadable: %v", err))
		} else {
			if layout.QTitle != "" {
				app.Name = layout.QTitle
			}
			app.Description = layout.QDescription
		}
	}

	if raw, ok := probe["qHyperCubeDef"]; ok {
		var hc hyperCubeDef
		if err := json.Unmarshal(raw, &hc); err != nil {
			warnings = append(warnings, fmt.Sprintf("qHyperCubeDef unreadable: %v", err))
			return app, warnings, nil
		}
		for _, d := range hc.QDimensions {
			field := firstOf(d.QDef.QFieldDefs)
			app.Dimensions = append(app.Dimensions, qlik.Dimension{
				ID:    d.QLibraryID,
				Name:  field,
				Field: field,
				Label: firstOf(d.QDef.QFieldLabels),
			})
		}
		for _, m := range hc.QMeasures {
			app.Measures = append(app.Measures, qlik.Measure{
				ID:         m.QLibraryID,
				Name:       m.QDef.QLabel,
				Expression: m.QDef.QDef,
				Label:      m.QDef.QLabel,
			})
		}
	}
	return app, warnings, nil
}

func hasAny(m map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

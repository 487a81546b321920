package extract

import (
	"archive/zip"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/qlik"
)

// appXML is the metadata document at the root of a QVF archive.
type appXML struct {
	Title       string `xml:"Title"`
	Description string `xml:"Description"`
	Author      string `xml:"Author"`
}

// ReadQVF opens a QVF archive (a zip container) and assembles an app from
// its entries: app.xml metadata, the load script, master dimensions and
// measures, sheets, and variables. The data model is re-derived from the
// load script. An archive missing any of these degrades to a partial app
// plus warnings; only a file that is not a zip at all errors.
func ReadQVF(path string) (*qlik.App, []string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening QVF archive: %w", err)
	}
	defer zr.Close()

	app := &qlik.App{}
	var warnings []string

	// Entries sorted by name so repeated extraction orders identically.
	entries := make([]*zip.File, len(zr.File))
	copy(entries, zr.File)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	for _, f := range entries {
		base := strings.ToLower(filepath.Base(f.Name))
		switch {
		case base == "app.xml":
			var meta appXML
			if err := decodeXMLEntry(f, &meta); err != nil {
				warnings = append(warnings, fmt.Sprintf("app.xml unreadable: %v", err))
				continue
			}
			app.Name = meta.Title
			app.Description = meta.Description
		case base == "loadscript.txt" || base == "loadscript.qvs":
			script, err := readEntry(f)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("load script unreadable: %v", err))
				continue
			}
			if app.LoadScript == "" {
				app.LoadScript = script
			}
		case base == "variables.json":
			var docs []variableDoc
			if err := decodeJSONEntry(f, &docs); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			for _, d := range docs {
				if v := d.toVariable(); v.Name != "" {
					app.Variables = append(app.Variables, v)
				}
			}
		case strings.HasSuffix(base, ".json") && strings.Contains(strings.ToLower(f.Name), "dimension"):
			var d dimensionDoc
			if err := decodeJSONEntry(f, &d); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			if dim := d.toDimension(); dim.Name != "" || dim.Field != "" {
				app.Dimensions = append(app.Dimensions, dim)
			}
		case strings.HasSuffix(base, ".json") && strings.Contains(strings.ToLower(f.Name), "sheet"):
			var s sheetDoc
			if err := decodeJSONEntry(f, &s); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			app.Sheets = append(app.Sheets, s.toSheet())
		case strings.HasSuffix(base, ".json"):
			// A measure entry is recognized by its qMeasure payload, not
			// its file name; exporters are inconsistent about naming.
			var m measureDoc
			if err := decodeJSONEntry(f, &m); err != nil {
				continue
			}
			if m.QMeasure != nil || (m.Expression != "" && m.Name != "") {
				if meas := m.toMeasure(); meas.Expression != "" {
					app.Measures = append(app.Measures, meas)
				}
			}
		}
	}

	if app.LoadScript != "" {
		tables, _ := infer.ExtractSchema(&qlik.App{LoadScript: app.LoadScript})
		for _, name := range tables.Names() {
			tbl := qlik.Table{Name: name}
			for _, field := range tables.Fields(name) {
				tbl.Fields = append(tbl.Fields, qlik.Field{Name: field})
			}
			app.Tables = append(app.Tables, tbl)
		}
	}

	app.Visualizations = VisualsFromSheets(app.Sheets)

	if app.Name == "" {
		app.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if app.LoadScript == "" && len(app.Measures) == 0 && len(app.Dimensions) == 0 && len(app.Sheets) == 0 {
		warnings = append(warnings, "QVF archive carried no recognizable app content")
	}
	return app, warnings, nil
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSONEntry(f *zip.File, v any) error {
	raw, err := readEntry(f)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func decodeXMLEntry(f *zip.File, v any) error {
	raw, err := readEntry(f)
	if err != nil {
		return err
	}
	return xml.Unmarshal([]byte(raw), v)
}

package visuals

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semshift/semshift/internal/pbi"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/tmdl"
)

const (
	schemaPages  = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/pagesMetadata/1.0.0/schema.json"
	schemaPage   = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/page/2.0.0/schema.json"
	schemaVisual = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/visualContainer/2.5.0/schema.json"

	pageWidth  = 1280
	pageHeight = 720
	gridCols   = 24 // source sheets place objects on a 24-column grid
	rowHeight  = 50
)

// WritePages emits one report page per source sheet under
// <name>.Report/definition/pages, binding each visualization's fields
// through the model. It returns review warnings.
func WritePages(dir, name string, app *qlik.App, model *pbi.Model) ([]string, error) {
	safe := tmdl.SanitizeName(name)
	if safe == "" {
		safe = "Report"
	}
	pagesDir := filepath.Join(dir, safe+".Report", "definition", "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pages dir: %w", err)
	}

	colTables, measureTables := modelLookups(model)
	fallback := ""
	if len(model.Tables) > 0 {
		fallback = model.Tables[0].Name
	}

	type pageInfo struct {
		name    string
		display string
		visuals []qlik.Visual
	}
	var pages []pageInfo

	if len(app.Sheets) > 0 {
		for i, sheet := range app.Sheets {
			pname := strings.ReplaceAll(tmdl.SanitizeName(sheet.Name), " ", "")
			if pname == "" {
				pname = fmt.Sprintf("Page%d", i+1)
			}
			var vs []qlik.Visual
			for _, v := range app.Visualizations {
				if v.SheetID == sheet.ID {
					vs = append(vs, v)
				}
			}
			// Sheet IDs that never match leave every visual orphaned;
			// land them all on the first page.
			if len(vs) == 0 && i == 0 {
				vs = app.Visualizations
			}
			display := sheet.Name
			if display == "" {
				display = fmt.Sprintf("Page %d", i+1)
			}
			pages = append(pages, pageInfo{pname, display, vs})
		}
	} else {
		pages = append(pages, pageInfo{"ReportSection", "Page 1", app.Visualizations})
	}

	order := make([]string, len(pages))
	for i, p := range pages {
		order[i] = p.name
	}
	active := ""
	if len(order) > 0 {
		active = order[0]
	}
	if err := writeJSON(filepath.Join(pagesDir, "pages.json"), map[string]any{
		"$schema":        schemaPages,
		"pageOrder":      order,
		"activePageName": active,
	}); err != nil {
		return nil, err
	}

	var warnings []string
	for _, p := range pages {
		pageDir := filepath.Join(pagesDir, p.name)
		visualsDir := filepath.Join(pageDir, "visuals")
		if err := os.MkdirAll(pageDir, 0o755); err != nil {
			return warnings, err
		}
		if err := writeJSON(filepath.Join(pageDir, "page.json"), map[string]any{
			"$schema":       schemaPage,
			"name":          p.name,
			"displayName":   p.display,
			"displayOption": "FitToPage",
			"height":        pageHeight,
			"width":         pageWidth,
		}); err != nil {
			return warnings, err
		}

		for i, v := range p.visuals {
			visualType, known := TypeFor(v.Type)
			if !known {
				warnings = append(warnings, fmt.Sprintf(
					"page %s: unknown visualization type %q rendered as tableEx", p.display, v.Type))
			}
			id := shortID(fmt.Sprintf("viz_%d_%s_%s", i, p.name, safe))
			vDir := filepath.Join(visualsDir, id)
			if err := os.MkdirAll(vDir, 0o755); err != nil {
				return warnings, err
			}
			doc := visualContainer(id, visualType, v, i, colTables, measureTables, fallback)
			if err := writeJSON(filepath.Join(vDir, "visual.json"), doc); err != nil {
				return warnings, err
			}
		}
	}
	return warnings, nil
}

// modelLookups indexes the model: column name to owning table, and
// measure name to owning table.
func modelLookups(model *pbi.Model) (colTables, measureTables map[string]string) {
	colTables = make(map[string]string)
	measureTables = make(map[string]string)
	for _, t := range model.Tables {
		for _, c := range t.Columns {
			colTables[c.Name] = t.Name
		}
		for _, m := range t.Measures {
			measureTables[m.Name] = t.Name
		}
	}
	return colTables, measureTables
}

func visualContainer(id, visualType string, v qlik.Visual, index int,
	colTables, measureTables map[string]string, fallbackTable string) map[string]any {
	x, y, w, h := position(v.Cell, index)

	visual := map[string]any{
		"visualType":              visualType,
		"drillFilterOtherVisuals": true,
	}
	if visualType == "tableEx" || visualType == "pivotTable" {
		visual["autoSelectVisualType"] = true
	}
	if qs := queryState(visualType, v, colTables, measureTables, fallbackTable); qs != nil {
		visual["query"] = map[string]any{"queryState": qs}
	}
	if v.Title != "" {
		title, _ := json.Marshal(v.Title)
		visual["vcObjects"] = map[string]any{
			"title": []any{map[string]any{
				"properties": map[string]any{
					"show": literal("true"),
					"text": literal(string(title)),
				},
			}},
		}
	}

	return map[string]any{
		"$schema": schemaVisual,
		"name":    id,
		"position": map[string]any{
			"x": x, "y": y,
			"z":        1000 + index,
			"height":   h,
			"width":    w,
			"tabOrder": 1000 + index,
		},
		"visual": visual,
	}
}

func literal(value string) map[string]any {
	return map[string]any{"expr": map[string]any{"Literal": map[string]any{"Value": value}}}
}

// position derives pixel bounds from the source grid cell, or falls back
// to a two-column flow layout.
func position(cell *qlik.Cell, index int) (x, y, w, h int) {
	const margin = 10
	w = (pageWidth - margin*3) / 2
	h = 340
	x = margin + (index%2)*(w+margin)
	y = margin + (index/2)*(h+margin)

	if cell == nil {
		return x, y, w, h
	}
	cellW := pageWidth / gridCols
	x = cell.Col * cellW
	y = cell.Row * rowHeight
	if cell.ColSpan > 0 {
		w = cell.ColSpan * cellW
	}
	if cell.RowSpan > 0 {
		h = cell.RowSpan * rowHeight
	}
	return x, y, w, h
}

// queryState binds the visualization's dimensions and measures into the
// visual's data roles. tableEx folds everything into its single Values
// role; other visuals receive all dimensions per dimension role and one
// measure per measure role.
func queryState(visualType string, v qlik.Visual,
	colTables, measureTables map[string]string, fallbackTable string) map[string]any {
	r, ok := dataRoles[visualType]
	if !ok {
		return nil
	}

	var dims []map[string]any
	for _, field := range v.Dimensions {
		table := colTables[field]
		if table == "" {
			table = fallbackTable
		}
		if table == "" || field == "" {
			continue
		}
		dims = append(dims, map[string]any{
			"field": map[string]any{
				"Column": map[string]any{
					"Expression": map[string]any{"SourceRef": map[string]any{"Entity": table}},
					"Property":   field,
				},
			},
			"queryRef":       table + "." + field,
			"nativeQueryRef": field,
			"active":         true,
		})
	}

	var meas []map[string]any
	for _, expr := range v.Measures {
		if table, ok := measureTables[expr]; ok {
			meas = append(meas, map[string]any{
				"field": map[string]any{
					"Measure": map[string]any{
						"Expression": map[string]any{"SourceRef": map[string]any{"Entity": table}},
						"Property":   expr,
					},
				},
				"queryRef":       table + "." + expr,
				"nativeQueryRef": expr,
			})
			continue
		}

		fn, column := parseAggregation(expr)
		if column == "" {
			continue
		}
		funcID, ok := aggFuncs[fn]
		if !ok {
			funcID = aggFuncs["sum"]
			fn = "sum"
		}
		table := colTables[column]
		if table == "" {
			table = fallbackTable
		}
		if table == "" {
			continue
		}
		aggName := strings.ToUpper(fn[:1]) + fn[1:]
		meas = append(meas, map[string]any{
			"field": map[string]any{
				"Aggregation": map[string]any{
					"Expression": map[string]any{
						"Column": map[string]any{
							"Expression": map[string]any{"SourceRef": map[string]any{"Entity": table}},
							"Property":   column,
						},
					},
					"Function": funcID,
				},
			},
			"queryRef":       fmt.Sprintf("%s(%s.%s)", aggName, table, column),
			"nativeQueryRef": column,
		})
	}

	if len(dims) == 0 && len(meas) == 0 {
		return nil
	}

	state := make(map[string]any)
	if visualType == "tableEx" {
		all := make([]any, 0, len(dims)+len(meas))
		for _, d := range dims {
			all = append(all, d)
		}
		for _, m := range meas {
			all = append(all, m)
		}
		state["Values"] = map[string]any{"projections": all}
		return state
	}

	for _, role := range r.dims {
		if len(dims) > 0 {
			state[role] = map[string]any{"projections": dims}
		}
	}
	for i, role := range r.meas {
		switch {
		case i < len(meas):
			state[role] = map[string]any{"projections": []any{meas[i]}}
		case len(meas) > 0:
			state[role] = map[string]any{"projections": []any{meas[0]}}
		}
	}
	if len(state) == 0 {
		return nil
	}
	return state
}

func shortID(seed string) string {
	sum := sha1.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:20]
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

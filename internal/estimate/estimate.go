// Package estimate scores the migration effort of an application before
// any conversion runs: per-area complexity scores, a total in effort
// days, and a T-shirt size with plain-language recommendations.
package estimate

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/semshift/semshift/internal/infer"
	"github.com/semshift/semshift/internal/qlik"
)

// Size thresholds in effort days.
const (
	sizeMediumAt = 5.0
	sizeLargeAt  = 15.0
	sizeXLAt     = 40.0
)

// Plan is the complete effort estimate for one application.
type Plan struct {
	AppName    string      `yaml:"app_name" json:"app_name"`
	Areas      []AreaScore `yaml:"areas" json:"areas"`
	TotalDays  float64     `yaml:"total_days" json:"total_days"`
	TShirtSize string      `yaml:"t_shirt_size" json:"t_shirt_size"`

	Tables      int `yaml:"tables" json:"tables"`
	Fields      int `yaml:"fields" json:"fields"`
	Measures    int `yaml:"measures" json:"measures"`
	Sheets      int `yaml:"sheets" json:"sheets"`
	Datasources int `yaml:"datasources" json:"datasources"`

	Recommendations []string `yaml:"recommendations" json:"recommendations"`
}

// AreaScore is the scored effort of one migration area.
type AreaScore struct {
	Area    string  `yaml:"area" json:"area"`
	Days    float64 `yaml:"days" json:"days"`
	Summary string  `yaml:"summary" json:"summary"`
}

var (
	setAnalysisRe = regexp.MustCompile(`\{\$?<`)
	aggrRe        = regexp.MustCompile(`(?i)\bAggr\s*\(`)
	ifRe          = regexp.MustCompile(`(?i)\bIf\s*\(`)
	interRecordRe = regexp.MustCompile(`(?i)\b(Above|Below|Top|Bottom|Before|After|Peek|Previous|RangeSum)\s*\(`)
)

// Estimate scores an application. The result is deterministic for a
// given app.
func Estimate(app *qlik.App) *Plan {
	p := &Plan{
		AppName:     app.Name,
		Tables:      len(app.Tables),
		Measures:    len(app.Measures),
		Sheets:      len(app.Sheets),
		Datasources: len(app.Datasources),
	}
	for _, t := range app.Tables {
		p.Fields += len(t.Fields)
	}

	schemaDays := round(float64(p.Tables)*0.25 + float64(p.Fields)*0.02)
	p.Areas = append(p.Areas, AreaScore{
		Area:    "schema",
		Days:    schemaDays,
		Summary: fmt.Sprintf("%d tables, %d fields", p.Tables, p.Fields),
	})

	exprDays, hardExprs := scoreExpressions(app)
	p.Areas = append(p.Areas, AreaScore{
		Area:    "expressions",
		Days:    exprDays,
		Summary: fmt.Sprintf("%d measures and %d dimensions, %d need manual review", len(app.Measures), len(app.Dimensions), hardExprs),
	})

	visuals := len(app.Visualizations)
	sheetDays := round(float64(p.Sheets)*0.5 + float64(visuals)*0.1)
	p.Areas = append(p.Areas, AreaScore{
		Area:    "sheets",
		Days:    sheetDays,
		Summary: fmt.Sprintf("%d sheets, %d visualizations", p.Sheets, visuals),
	})

	dsDays, kinds, qvds := scoreDatasources(app.Datasources)
	p.Areas = append(p.Areas, AreaScore{
		Area:    "datasources",
		Days:    dsDays,
		Summary: fmt.Sprintf("%d connector kinds, %d QVD sources", kinds, qvds),
	})

	synthetic := syntheticKeyCount(app)
	synthDays := round(float64(synthetic))
	p.Areas = append(p.Areas, AreaScore{
		Area:    "model",
		Days:    synthDays,
		Summary: fmt.Sprintf("%d synthetic key candidates", synthetic),
	})

	for _, a := range p.Areas {
		p.TotalDays += a.Days
	}
	p.TotalDays = round(p.TotalDays)
	p.TShirtSize = tShirtSize(p.TotalDays)
	p.Recommendations = recommendations(p, hardExprs, qvds, synthetic)
	return p
}

// scoreExpressions weighs every measure and dimension expression.
// Set-analysis, Aggr, nested If, and inter-record functions score
// higher; anything that uses one of these also counts as needing
// manual review.
func scoreExpressions(app *qlik.App) (days float64, hard int) {
	score := func(expr string) float64 {
		d := 0.2
		hardHere := false
		if n := len(setAnalysisRe.FindAllString(expr, -1)); n > 0 {
			d += 0.5 * float64(n)
			hardHere = true
		}
		if n := len(aggrRe.FindAllString(expr, -1)); n > 0 {
			d += 0.4 * float64(n)
			hardHere = true
		}
		if n := len(ifRe.FindAllString(expr, -1)); n > 1 {
			d += 0.3 * float64(n-1)
			hardHere = true
		}
		if n := len(interRecordRe.FindAllString(expr, -1)); n > 0 {
			d += 0.5 * float64(n)
			hardHere = true
		}
		if hardHere {
			hard++
		}
		return d
	}

	for _, m := range app.Measures {
		days += score(m.Expression)
	}
	for _, d := range app.Dimensions {
		if strings.HasPrefix(strings.TrimSpace(d.Field), "=") {
			days += score(d.Field)
		} else {
			days += 0.05
		}
	}
	return round(days), hard
}

func scoreDatasources(datasources []qlik.Datasource) (days float64, kinds, qvds int) {
	seen := make(map[string]bool)
	for _, ds := range datasources {
		kind := ds.ConnectionType
		if kind == "" {
			kind = ds.Type
		}
		if kind == "" {
			kind = ds.SourceType
		}
		kind = strings.ToLower(kind)
		if kind == "" && ds.Path != "" {
			if i := strings.LastIndex(ds.Path, "."); i >= 0 {
				kind = strings.ToLower(ds.Path[i+1:])
			}
		}
		if kind != "" && !seen[kind] {
			seen[kind] = true
		}
		if kind == "qvd" || strings.HasSuffix(strings.ToLower(ds.Path), ".qvd") {
			qvds++
		}
	}
	kinds = len(seen)
	return round(float64(kinds)*0.5 + float64(qvds)*0.5), kinds, qvds
}

func syntheticKeyCount(app *qlik.App) int {
	tables, _ := infer.ExtractSchema(app)
	if len(tables) == 0 {
		return 0
	}
	keys, _ := infer.FlagSyntheticKeys(tables)
	return len(keys)
}

func tShirtSize(days float64) string {
	switch {
	case days < sizeMediumAt:
		return "S"
	case days < sizeLargeAt:
		return "M"
	case days < sizeXLAt:
		return "L"
	default:
		return "XL"
	}
}

func recommendations(p *Plan, hardExprs, qvds, synthetic int) []string {
	var recs []string
	if hardExprs > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d expressions use set analysis, Aggr, nested If, or inter-record functions; budget review time for each", hardExprs))
	}
	if qvds > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d QVD sources need re-pointing at CSV or Parquet extracts before refresh works", qvds))
	}
	if synthetic > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d synthetic key candidates should be resolved with explicit link tables or composite keys", synthetic))
	}
	if p.Sheets > 10 {
		recs = append(recs, "more than 10 sheets; consider migrating the most used pages first")
	}
	sort.Strings(recs)
	return recs
}

// round rounds to the nearest half day, with anything positive scoring
// at least half a day.
func round(days float64) float64 {
	if days <= 0 {
		return 0
	}
	r := math.Round(days*2) / 2
	if r == 0 {
		return 0.5
	}
	return r
}

// WriteYAML writes the plan to a YAML file.
func (p *Plan) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling estimate: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a plan from a YAML file.
func LoadYAML(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading estimate: %w", err)
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing estimate: %w", err)
	}
	return &p, nil
}

// FormatText renders the plan as human-readable text.
func (p *Plan) FormatText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Estimate for %q: %.1f days (%s)\n\n", p.AppName, p.TotalDays, p.TShirtSize)
	for _, a := range p.Areas {
		fmt.Fprintf(&b, "  %-12s %5.1f days  %s\n", a.Area, a.Days, a.Summary)
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for i, r := range p.Recommendations {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, r)
		}
	}
	return b.String()
}

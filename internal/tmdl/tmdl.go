// Package tmdl emits semantic models as PBIP projects: the .pbip root
// file, a SemanticModel folder with TMDL definition files, and a Report
// folder shell ready for page scaffolding. The layout targets PBI
// Project format 4.0 (Developer Mode, Fabric Git Integration).
package tmdl

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semshift/semshift/internal/pbi"
)

// Parameter configures one what-if parameter table.
type Parameter struct {
	Name    string  `json:"name" yaml:"name"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
	Default float64 `json:"default" yaml:"default"`
}

// Options controls project emission.
type Options struct {
	// Calendar injects a generated date table covering CalendarStart
	// through CalendarEnd (years; zero values mean 2020-2030).
	Calendar      bool
	CalendarStart int
	CalendarEnd   int

	// Parameters each yield a what-if table plus a shared expression.
	Parameters []Parameter

	Culture string
}

const (
	schemaPBIP     = "https://developer.microsoft.com/json-schemas/fabric/pbip/pbipProperties/1.0.0/schema.json"
	schemaPBISM    = "https://developer.microsoft.com/json-schemas/fabric/item/semanticModel/definitionProperties/1.0.0/schema.json"
	schemaPBIR     = "https://developer.microsoft.com/json-schemas/fabric/item/report/definitionProperties/2.0.0/schema.json"
	schemaPlatform = "https://developer.microsoft.com/json-schemas/fabric/gitIntegration/platformProperties/2.0.0/schema.json"
	schemaVersion  = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/versionMetadata/1.0.0/schema.json"
	schemaReport   = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/report/3.1.0/schema.json"
	schemaPages    = "https://developer.microsoft.com/json-schemas/fabric/item/report/definition/pagesMetadata/1.0.0/schema.json"
)

// WriteProject lays out a complete PBIP project under dir and returns
// the path of the .pbip file.
func WriteProject(dir, name string, model *pbi.Model, opts Options) (string, error) {
	safe := SanitizeName(name)
	if safe == "" {
		safe = "Report"
	}

	work := *model
	if opts.Calendar {
		work.Tables = append(work.Tables, CalendarTable(opts.CalendarStart, opts.CalendarEnd))
	}
	for _, p := range opts.Parameters {
		work.Tables = append(work.Tables, ParameterTable(p))
	}

	smDir := filepath.Join(dir, safe+".SemanticModel")
	smDefDir := filepath.Join(smDir, "definition")
	tablesDir := filepath.Join(smDefDir, "tables")
	rptDir := filepath.Join(dir, safe+".Report")
	rptDefDir := filepath.Join(rptDir, "definition")
	pagesDir := filepath.Join(rptDefDir, "pages")

	for _, d := range []string{tablesDir, pagesDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return "", fmt.Errorf("create project layout: %w", err)
		}
	}

	if err := writeGitignore(filepath.Join(dir, ".gitignore")); err != nil {
		return "", err
	}

	pbipPath := filepath.Join(dir, safe+".pbip")
	if err := writeJSON(pbipPath, map[string]any{
		"$schema":   schemaPBIP,
		"version":   "1.0",
		"artifacts": []any{map[string]any{"report": map[string]string{"path": safe + ".Report"}}},
		"settings":  map[string]bool{"enableAutoRecovery": true},
	}); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(smDir, "definition.pbism"), map[string]any{
		"$schema":  schemaPBISM,
		"version":  "4.0",
		"settings": map[string]any{},
	}); err != nil {
		return "", err
	}
	if err := writePlatform(filepath.Join(smDir, ".platform"), "SemanticModel", name); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(smDir, "diagramLayout.json"), map[string]any{
		"version":  "1.1.0",
		"diagrams": []any{},
	}); err != nil {
		return "", err
	}

	if err := writeDatabase(filepath.Join(smDefDir, "database.tmdl")); err != nil {
		return "", err
	}
	if err := writeModel(filepath.Join(smDefDir, "model.tmdl"), &work, opts.Culture); err != nil {
		return "", err
	}
	for i := range work.Tables {
		t := &work.Tables[i]
		path := filepath.Join(tablesDir, SanitizeName(t.Name)+".tmdl")
		if err := writeTable(path, t); err != nil {
			return "", err
		}
	}
	if len(work.Relationships) > 0 {
		if err := writeRelationships(filepath.Join(smDefDir, "relationships.tmdl"), work.Relationships); err != nil {
			return "", err
		}
	}
	if len(opts.Parameters) > 0 {
		if err := writeExpressions(filepath.Join(smDefDir, "expressions.tmdl"), opts.Parameters); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(rptDir, "definition.pbir"), map[string]any{
		"$schema": schemaPBIR,
		"version": "4.0",
		"datasetReference": map[string]any{
			"byPath": map[string]string{"path": "../" + safe + ".SemanticModel"},
		},
	}); err != nil {
		return "", err
	}
	if err := writePlatform(filepath.Join(rptDir, ".platform"), "Report", name); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(rptDefDir, "version.json"), map[string]any{
		"$schema": schemaVersion,
		"version": "2.0.0",
	}); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(rptDefDir, "report.json"), map[string]any{
		"$schema": schemaReport,
		"themeCollection": map[string]any{
			"baseTheme": map[string]any{
				"name": "CY24SU06",
				"reportVersionAtImport": map[string]string{
					"visual": "1.8.50",
					"report": "2.0.50",
					"page":   "1.3.50",
				},
				"type": "SharedResources",
			},
		},
		"settings": map[string]bool{
			"hideVisualContainerHeader":        true,
			"useStylableVisualContainerHeader": true,
			"defaultDrillFilterOtherVisuals":   true,
			"allowChangeFilterTypes":           true,
			"useEnhancedTooltips":              true,
		},
	}); err != nil {
		return "", err
	}
	// A placeholder page index; report scaffolding replaces it when the
	// source app carries sheets.
	if err := writeJSON(filepath.Join(pagesDir, "pages.json"), map[string]any{
		"$schema":        schemaPages,
		"pageOrder":      []string{},
		"activePageName": "",
	}); err != nil {
		return "", err
	}

	return pbipPath, nil
}

func writeGitignore(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte("**/.pbi/localSettings.json\n**/.pbi/cache.abf\n"), 0o644)
}

func writePlatform(path, itemType, displayName string) error {
	return writeJSON(path, map[string]any{
		"$schema": schemaPlatform,
		"metadata": map[string]string{
			"type":        itemType,
			"displayName": displayName,
		},
		"config": map[string]string{
			"version":   "2.0",
			"logicalId": NewGUID(),
		},
	})
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

// SanitizeName keeps letters, digits, spaces, hyphens, and underscores,
// replacing everything else with an underscore.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// quoteIdent quotes a TMDL identifier when it contains spaces or
// punctuation. Empty names render as ''.
func quoteIdent(name string) string {
	if name == "" {
		return "''"
	}
	if strings.ContainsAny(name, " .-+/\\(){}[]") {
		return "'" + name + "'"
	}
	return name
}

// LineageTag derives a UUID-shaped tag from a scope and name. The same
// inputs always yield the same tag, so re-emitting a project produces
// no spurious diffs.
func LineageTag(scope, name string) string {
	sum := sha1.Sum([]byte(scope + "|" + name))
	h := hex.EncodeToString(sum[:16])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

// NewGUID returns a random UUID string.
func NewGUID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a derived value; emission must not fail on
		// entropy starvation.
		return LineageTag("guid", fmt.Sprint(os.Getpid()))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	h := hex.EncodeToString(b[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:32]
}

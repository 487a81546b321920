// Package typemap resolves target data types and format strings for model
// columns: a declared-type vocabulary, name-based inference for untyped
// fields, and a YAML override layer that pins individual fields.
package typemap

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/semshift/semshift/internal/pbi"
)

var qlikTypes = map[string]string{
	"text":      pbi.TypeString,
	"string":    pbi.TypeString,
	"num":       pbi.TypeDouble,
	"number":    pbi.TypeDouble,
	"numeric":   pbi.TypeDouble,
	"integer":   pbi.TypeInt64,
	"int":       pbi.TypeInt64,
	"money":     pbi.TypeDecimal,
	"currency":  pbi.TypeDecimal,
	"date":      pbi.TypeDateTime,
	"datetime":  pbi.TypeDateTime,
	"timestamp": pbi.TypeDateTime,
	"time":      pbi.TypeDateTime,
	"boolean":   pbi.TypeBoolean,
	"dual":      pbi.TypeString,
}

// QlikType maps a declared source type name to the target vocabulary.
// Unknown or empty names map to string.
func QlikType(t string) string {
	if v, ok := qlikTypes[strings.ToLower(t)]; ok {
		return v
	}
	return pbi.TypeString
}

var qlikFormats = map[string]string{
	"#,##0":               "#,0",
	"#,##0.00":            "#,0.00",
	"0%":                  "0%",
	"0.00%":               "0.00%",
	"$ #,##0":             "$#,0",
	"$ #,##0.00":          "$#,0.00",
	"DD/MM/YYYY":          "DD/MM/YYYY",
	"MM/DD/YYYY":          "MM/DD/YYYY",
	"YYYY-MM-DD":          "YYYY-MM-DD",
	"YYYY-MM-DD hh:mm:ss": "YYYY-MM-DD hh:nn:ss",
	"hh:mm:ss":            "hh:nn:ss",
	"hh:mm":               "hh:nn",
}

var minutesRe = regexp.MustCompile(`(?i)(hh?):mm`)

// QlikFormat converts a source format string. Known formats map directly.
// Anything else only has its minutes token rewritten when it follows an
// hour token; in the target dialect mm means months and nn minutes.
func QlikFormat(f string) string {
	if f == "" {
		return ""
	}
	if v, ok := qlikFormats[f]; ok {
		return v
	}
	return minutesRe.ReplaceAllString(f, "${1}:nn")
}

// DefaultFormat returns the default format string for a data type. String
// columns carry none.
func DefaultFormat(dataType string) string {
	switch dataType {
	case pbi.TypeInt64:
		return "0"
	case pbi.TypeDouble:
		return "#,0.00"
	case pbi.TypeDateTime:
		return "Long Date"
	}
	return ""
}

// TypeMap resolves target data types. Mappings translate the declared
// source type vocabulary; Fields pins individual field names to a type
// regardless of declaration or inference; Formats pins field-level format
// strings.
type TypeMap struct {
	Mappings map[string]string `yaml:"mappings"`
	Fields   map[string]string `yaml:"fields,omitempty"`
	Formats  map[string]string `yaml:"formats,omitempty"`
}

// Default returns a TypeMap carrying the built-in source type vocabulary.
func Default() *TypeMap {
	tm := &TypeMap{
		Mappings: make(map[string]string, len(qlikTypes)),
		Fields:   make(map[string]string),
		Formats:  make(map[string]string),
	}
	for k, v := range qlikTypes {
		tm.Mappings[k] = v
	}
	return tm
}

// Resolve maps a declared source type to a target type; unknown or empty
// types resolve to string.
func (tm *TypeMap) Resolve(sourceType string) string {
	if t, ok := tm.Mappings[strings.ToLower(sourceType)]; ok {
		return t
	}
	return pbi.TypeString
}

// ColumnType picks the data type for one column: a field pin wins, then a
// declared source type, then name-based inference.
func (tm *TypeMap) ColumnType(field, declared string, measureRefs map[string]bool) string {
	if tm != nil {
		if t := tm.Fields[field]; t != "" {
			return t
		}
	}
	if declared != "" {
		if tm != nil {
			return tm.Resolve(declared)
		}
		return QlikType(declared)
	}
	return InferColumnType(field, measureRefs)
}

// FormatFor picks the format string for a column: a field pin wins, then
// the default for the data type.
func (tm *TypeMap) FormatFor(field, dataType string) string {
	if tm != nil {
		if f, ok := tm.Formats[field]; ok {
			return f
		}
	}
	return DefaultFormat(dataType)
}

// Override applies a user override for a source type.
func (tm *TypeMap) Override(sourceType, target string) {
	tm.Mappings[strings.ToLower(sourceType)] = target
}

// RestoreDefault restores the built-in mapping for a source type; types
// outside the built-in vocabulary are removed.
func (tm *TypeMap) RestoreDefault(sourceType string) {
	key := strings.ToLower(sourceType)
	if def, ok := qlikTypes[key]; ok {
		tm.Mappings[key] = def
		return
	}
	delete(tm.Mappings, key)
}

// IsOverridden reports whether a source type differs from its built-in
// mapping.
func (tm *TypeMap) IsOverridden(sourceType string) bool {
	key := strings.ToLower(sourceType)
	def, ok := qlikTypes[key]
	if !ok {
		_, present := tm.Mappings[key]
		return present
	}
	return tm.Mappings[key] != def
}

// SortedTypes returns the source type names sorted alphabetically.
func (tm *TypeMap) SortedTypes() []string {
	types := make([]string, 0, len(tm.Mappings))
	for k := range tm.Mappings {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}

// WriteYAML writes the type map to a YAML file.
func (tm *TypeMap) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling type map: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads a type map from a YAML file. Mappings absent from the
// file keep their built-in values, so a file carrying only field pins
// still resolves declared types.
func LoadYAML(path string) (*TypeMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading type map file: %w", err)
	}
	loaded := &TypeMap{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing type map: %w", err)
	}
	tm := Default()
	for k, v := range loaded.Mappings {
		tm.Mappings[strings.ToLower(k)] = v
	}
	for k, v := range loaded.Fields {
		tm.Fields[k] = v
	}
	for k, v := range loaded.Formats {
		tm.Formats[k] = v
	}
	return tm, nil
}

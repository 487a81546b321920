package qlik

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrInvalidSchema reports input whose top-level shape is not an app
// document at all. Content-level problems (missing tables, empty scripts)
// never produce it; they degrade to warnings downstream.
var ErrInvalidSchema = errors.New("invalid app schema")

// Decode parses an app document from JSON. A document that is not a JSON
// object, or whose top-level keys carry the wrong shape (tables that are
// not an array, and so on), fails with ErrInvalidSchema.
func Decode(data []byte) (*App, error) {
	app := &App{}
	if err := json.Unmarshal(data, app); err != nil {
		var typeErr *json.UnmarshalTypeError
		var syntaxErr *json.SyntaxError
		if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		return nil, fmt.Errorf("decoding app: %w", err)
	}
	return app, nil
}

// UnmarshalJSON accepts both field shapes exporters produce: a plain
// string ("CustomerID") or an object ({"name": "CustomerID", "type": ...}).
func (f *Field) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		f.Name = name
		f.Type = ""
		return nil
	}
	type plain Field
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = Field(p)
	return nil
}

// LoadJSON reads an app document from a JSON file.
func LoadJSON(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading app file: %w", err)
	}
	return Decode(data)
}

// WriteJSON writes the app as indented JSON, the same shape Decode reads.
func (a *App) WriteJSON(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling app: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

package qlik

import "fmt"

// App represents an extracted Qlik Sense application: its data model,
// master items, UI objects, and raw load script.
type App struct {
	Name           string        `json:"name,omitempty"`
	Description    string        `json:"description,omitempty"`
	Tables         []Table       `json:"tables,omitempty"`
	Associations   []Association `json:"associations,omitempty"`
	Measures       []Measure     `json:"measures,omitempty"`
	Dimensions     []Dimension   `json:"dimensions,omitempty"`
	Variables      []Variable    `json:"variables,omitempty"`
	Sheets         []Sheet       `json:"sheets,omitempty"`
	Visualizations []Visual      `json:"visualizations,omitempty"`
	Datasources    []Datasource  `json:"datasources,omitempty"`
	Bookmarks      []Bookmark    `json:"bookmarks,omitempty"`
	LoadScript     string        `json:"loadScript,omitempty"`
}

// Table is one logical table of the source data model.
type Table struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Field is a single field of a source table. Type is optional and uses
// Qlik's type vocabulary (text, num, integer, date, money, ...).
type Field struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Association links two tables on a shared field. Type is "explicit" for
// associations declared by the app and "natural" for inferred ones;
// "synthetic" may appear on declared associations involving ambiguous keys.
type Association struct {
	FromTable string `json:"fromTable"`
	FromField string `json:"fromField"`
	ToTable   string `json:"toTable"`
	ToField   string `json:"toField"`
	Type      string `json:"type,omitempty"`
	Note      string `json:"note,omitempty"`
}

// Measure is a master measure with its Qlik expression.
type Measure struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Label      string `json:"label,omitempty"`
	Format     string `json:"format,omitempty"`
}

// Dimension is a master dimension. Field holds the first field definition,
// which may be a plain field name or a calculated expression.
type Dimension struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Field string `json:"field"`
	Label string `json:"label,omitempty"`
}

// Variable is a script or document variable.
type Variable struct {
	Name    string `json:"name"`
	Value   string `json:"value,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// Sheet is a UI sheet with its object grid.
type Sheet struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Cells       []Cell `json:"cells,omitempty"`
}

// Cell is one object placement on a sheet's grid.
type Cell struct {
	Name    string `json:"name,omitempty"`
	Type    string `json:"type,omitempty"`
	Col     int    `json:"col"`
	Row     int    `json:"row"`
	ColSpan int    `json:"colspan,omitempty"`
	RowSpan int    `json:"rowspan,omitempty"`
}

// Visual is a visualization object harvested from a sheet.
type Visual struct {
	ID         string   `json:"id,omitempty"`
	Type       string   `json:"type"`
	Title      string   `json:"title,omitempty"`
	SheetID    string   `json:"sheetId,omitempty"`
	Dimensions []string `json:"dimensions,omitempty"`
	Measures   []string `json:"measures,omitempty"`
	Cell       *Cell    `json:"cell,omitempty"`
}

// Bookmark is a stored selection state.
type Bookmark struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Datasource describes where a table loads its data from. The connection
// kind is resolved from ConnectionType, Type, or SourceType in that order,
// falling back to the path extension.
type Datasource struct {
	Name           string  `json:"name,omitempty"`
	Type           string  `json:"type,omitempty"`
	ConnectionType string  `json:"connectionType,omitempty"`
	SourceType     string  `json:"sourceType,omitempty"`
	Path           string  `json:"path,omitempty"`
	Server         string  `json:"server,omitempty"`
	Database       string  `json:"database,omitempty"`
	Schema         string  `json:"schema,omitempty"`
	Table          string  `json:"table,omitempty"`
	Query          string  `json:"query,omitempty"`
	Warehouse      string  `json:"warehouse,omitempty"`
	Project        string  `json:"project,omitempty"`
	Catalog        string  `json:"catalog,omitempty"`
	URL            string  `json:"url,omitempty"`
	Delimiter      string  `json:"delimiter,omitempty"`
	SheetName      string  `json:"sheet,omitempty"`
	Fields         []Field `json:"fields,omitempty"`
}

// FieldTypes returns the declared source type of every field that has
// one, keyed by field name. A field repeated across tables keeps the
// last declaration.
func (a *App) FieldTypes() map[string]string {
	types := make(map[string]string)
	for _, t := range a.Tables {
		for _, f := range t.Fields {
			if f.Type != "" {
				types[f.Name] = f.Type
			}
		}
	}
	return types
}

// FindTable returns the table with the given name, or nil.
func (a *App) FindTable(name string) *Table {
	for i := range a.Tables {
		if a.Tables[i].Name == name {
			return &a.Tables[i]
		}
	}
	return nil
}

// HasField reports whether the table contains a field with the given name.
func (t *Table) HasField(name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Summary returns a human-readable summary of the app.
func (a *App) Summary() string {
	fields := 0
	for _, t := range a.Tables {
		fields += len(t.Fields)
	}
	return fmt.Sprintf(
		"App %q: %d tables, %d fields, %d measures, %d dimensions, %d sheets",
		a.Name, len(a.Tables), fields, len(a.Measures), len(a.Dimensions), len(a.Sheets),
	)
}

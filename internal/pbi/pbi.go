package pbi

import "fmt"

// Data types of the target model.
const (
	TypeString   = "string"
	TypeInt64    = "int64"
	TypeDouble   = "double"
	TypeDecimal  = "decimal"
	TypeDateTime = "dateTime"
	TypeBoolean  = "boolean"
)

// Relationship cardinalities and cross-filter directions.
const (
	ManyToOne  = "manyToOne"
	OneToMany  = "oneToMany"
	OneToOne   = "oneToOne"
	ManyToMany = "manyToMany"

	FilterSingle = "single"
	FilterBoth   = "both"
)

// Model is the assembled semantic model ready for emission.
type Model struct {
	Name          string         `json:"name"`
	Culture       string         `json:"culture,omitempty"`
	Tables        []Table        `json:"tables"`
	Relationships []Relationship `json:"relationships"`
	SyntheticKeys []string       `json:"syntheticKeys,omitempty"`
}

// Table is one model table with its columns, measures, and hierarchies.
type Table struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	IsHidden    bool        `json:"isHidden,omitempty"`
	Columns     []Column    `json:"columns"`
	Measures    []Measure   `json:"measures,omitempty"`
	Hierarchies []Hierarchy `json:"hierarchies,omitempty"`
	Partition   *Partition  `json:"partition,omitempty"`
}

// Column is a model column. Expression is set only for calculated columns,
// in which case SourceColumn is empty.
type Column struct {
	Name         string `json:"name"`
	DataType     string `json:"dataType"`
	FormatString string `json:"formatString,omitempty"`
	DataCategory string `json:"dataCategory,omitempty"`
	SourceColumn string `json:"sourceColumn,omitempty"`
	Expression   string `json:"expression,omitempty"`
	SortByColumn string `json:"sortByColumn,omitempty"`
	Description  string `json:"description,omitempty"`
	IsHidden     bool   `json:"isHidden,omitempty"`
}

// Measure is a DAX measure.
type Measure struct {
	Name         string `json:"name"`
	Expression   string `json:"expression"`
	FormatString string `json:"formatString,omitempty"`
	Description  string `json:"description,omitempty"`
	Folder       string `json:"displayFolder,omitempty"`
}

// Hierarchy groups columns into drill levels.
type Hierarchy struct {
	Name   string  `json:"name"`
	Levels []Level `json:"levels"`
}

// Level is one hierarchy level backed by a column of the same table.
type Level struct {
	Name   string `json:"name"`
	Column string `json:"column"`
}

// Partition carries the table's source query. Mode is "import" unless
// set otherwise.
type Partition struct {
	Mode   string `json:"mode"`
	Source string `json:"source"`
}

// Relationship joins two tables on one column each.
type Relationship struct {
	Name        string `json:"name"`
	FromTable   string `json:"fromTable"`
	FromColumn  string `json:"fromColumn"`
	ToTable     string `json:"toTable"`
	ToColumn    string `json:"toColumn"`
	Cardinality string `json:"cardinality"`
	CrossFilter string `json:"crossFilter"`
	IsActive    bool   `json:"isActive"`
}

// FindTable returns the table with the given name, or nil.
func (m *Model) FindTable(name string) *Table {
	for i := range m.Tables {
		if m.Tables[i].Name == name {
			return &m.Tables[i]
		}
	}
	return nil
}

// FindColumn returns the column with the given name, or nil.
func (t *Table) FindColumn(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Summary returns a human-readable summary of the model.
func (m *Model) Summary() string {
	cols, measures, hiers := 0, 0, 0
	for _, t := range m.Tables {
		cols += len(t.Columns)
		measures += len(t.Measures)
		hiers += len(t.Hierarchies)
	}
	return fmt.Sprintf(
		"Model %q: %d tables, %d columns, %d measures, %d hierarchies, %d relationships",
		m.Name, len(m.Tables), cols, measures, hiers, len(m.Relationships),
	)
}

package extract

import (
	"encoding/json"
	"fmt"

	"github.com/semshift/semshift/internal/qlik"
)

// Engine document shapes. The same concept is spelled several ways
// depending on which Qlik surface produced the JSON; each doc type
// carries every spelling and normalizes through a fallback chain.

type qInfo struct {
	QID   string `json:"qId"`
	QType string `json:"qType"`
}

type qMetaDef struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type qDim struct {
	QFieldDefs   []string `json:"qFieldDefs"`
	QFieldLabels []string `json:"qFieldLabels"`
}

type qMeasureDef struct {
	QDef   string `json:"qDef"`
	QLabel string `json:"qLabel"`
}

type qNumFormat struct {
	QFmt string `json:"qFmt"`
}

type dimensionDoc struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Field      string    `json:"field"`
	Label      string    `json:"label"`
	Expression string    `json:"expression"`
	QInfo      *qInfo    `json:"qInfo"`
	QMetaDef   *qMetaDef `json:"qMetaDef"`
	QDim       *qDim     `json:"qDim"`
}

func (d dimensionDoc) toDimension() qlik.Dimension {
	return qlik.Dimension{
		ID:    firstNonEmpty(d.ID, qid(d.QInfo)),
		Name:  firstNonEmpty(d.Name, metaTitle(d.QMetaDef)),
		Field: firstNonEmpty(d.Field, d.Expression, firstOf(fieldDefs(d.QDim))),
		Label: firstNonEmpty(d.Label, firstOf(fieldLabels(d.QDim)), metaTitle(d.QMetaDef)),
	}
}

type measureDoc struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Expression   string       `json:"expression"`
	Label        string       `json:"label"`
	Format       string       `json:"format"`
	FormatString string       `json:"formatString"`
	QInfo        *qInfo       `json:"qInfo"`
	QMetaDef     *qMetaDef    `json:"qMetaDef"`
	QMeasure     *qMeasureDef `json:"qMeasure"`
	QNumFormat   *qNumFormat  `json:"qNumFormat"`
}

func (m measureDoc) toMeasure() qlik.Measure {
	var def, label string
	if m.QMeasure != nil {
		def, label = m.QMeasure.QDef, m.QMeasure.QLabel
	}
	var numFmt string
	if m.QNumFormat != nil {
		numFmt = m.QNumFormat.QFmt
	}
	return qlik.Measure{
		ID:         firstNonEmpty(m.ID, qid(m.QInfo)),
		Name:       firstNonEmpty(m.Name, metaTitle(m.QMetaDef)),
		Expression: firstNonEmpty(m.Expression, def),
		Label:      firstNonEmpty(m.Label, label, metaTitle(m.QMetaDef)),
		Format:     firstNonEmpty(m.Format, m.FormatString, numFmt),
	}
}

type sheetDoc struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	QInfo       *qInfo      `json:"qInfo"`
	QMetaDef    *qMetaDef   `json:"qMetaDef"`
	Cells       []qlik.Cell `json:"cells"`
}

func (s sheetDoc) toSheet() qlik.Sheet {
	return qlik.Sheet{
		ID:          firstNonEmpty(s.ID, qid(s.QInfo)),
		Name:        firstNonEmpty(s.Name, s.Title, metaTitle(s.QMetaDef)),
		Description: firstNonEmpty(s.Description, metaDescription(s.QMetaDef)),
		Cells:       s.Cells,
	}
}

type variableDoc struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Definition  string `json:"definition"`
	Comment     string `json:"comment"`
	QName       string `json:"qName"`
	QDefinition string `json:"qDefinition"`
	QComment    string `json:"qComment"`
}

func (v variableDoc) toVariable() qlik.Variable {
	return qlik.Variable{
		Name:    firstNonEmpty(v.Name, v.QName),
		Value:   firstNonEmpty(v.Value, v.Definition, v.QDefinition),
		Comment: firstNonEmpty(v.Comment, v.QComment),
	}
}

type bookmarkDoc struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	QInfo       *qInfo    `json:"qInfo"`
	QMetaDef    *qMetaDef `json:"qMetaDef"`
}

func (b bookmarkDoc) toBookmark() qlik.Bookmark {
	return qlik.Bookmark{
		ID:          firstNonEmpty(b.ID, qid(b.QInfo)),
		Name:        firstNonEmpty(b.Name, metaTitle(b.QMetaDef)),
		Description: b.Description,
	}
}

type associationDoc struct {
	FromTable string `json:"fromTable"`
	FromField string `json:"fromField"`
	ToTable   string `json:"toTable"`
	ToField   string `json:"toField"`
	Type      string `json:"type"`
	Table1    string `json:"table1"`
	Field1    string `json:"field1"`
	Table2    string `json:"table2"`
	Field2    string `json:"field2"`
}

func (a associationDoc) toAssociation() qlik.Association {
	return qlik.Association{
		FromTable: firstNonEmpty(a.FromTable, a.Table1),
		FromField: firstNonEmpty(a.FromField, a.Field1),
		ToTable:   firstNonEmpty(a.ToTable, a.Table2),
		ToField:   firstNonEmpty(a.ToField, a.Field2),
		Type:      a.Type,
	}
}

type hyperCubeDef struct {
	QDimensions []hcDimension `json:"qDimensions"`
	QMeasures   []hcMeasure   `json:"qMeasures"`
}

type hcDimension struct {
	QLibraryID string `json:"qLibraryId"`
	QDef       qDim   `json:"qDef"`
}

type hcMeasure struct {
	QLibraryID string      `json:"qLibraryId"`
	QDef       qMeasureDef `json:"qDef"`
}

type appLayout struct {
	QTitle       string `json:"qTitle"`
	QDescription string `json:"qDescription"`
}

// scriptDoc decodes a load script stored either as a plain string or as
// the artifact wrapper {"script": "..."}.
type scriptDoc struct {
	Script string
}

func (s *scriptDoc) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &s.Script); err == nil {
		return nil
	}
	var obj struct {
		Script string `json:"script"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	s.Script = obj.Script
	return nil
}

// VisualsFromSheets harvests one visual per sheet cell. Sheets missing
// ids or names get positional fallbacks assigned in place so downstream
// references stay resolvable.
func VisualsFromSheets(sheets []qlik.Sheet) []qlik.Visual {
	var visuals []qlik.Visual
	for i := range sheets {
		sheet := &sheets[i]
		if sheet.ID == "" {
			sheet.ID = fmt.Sprintf("sheet_%d", i)
		}
		if sheet.Name == "" {
			sheet.Name = fmt.Sprintf("Sheet %d", i+1)
		}
		for j := range sheet.Cells {
			cell := &sheet.Cells[j]
			id := cell.Name
			if id == "" {
				id = fmt.Sprintf("%s_vis_%d", sheet.ID, j)
			}
			visualType := cell.Type
			if visualType == "" {
				visualType = "unknown"
			}
			visuals = append(visuals, qlik.Visual{
				ID:      id,
				Type:    visualType,
				SheetID: sheet.ID,
				Cell:    cell,
			})
		}
	}
	return visuals
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func qid(info *qInfo) string {
	if info == nil {
		return ""
	}
	return info.QID
}

func metaTitle(meta *qMetaDef) string {
	if meta == nil {
		return ""
	}
	return meta.Title
}

func metaDescription(meta *qMetaDef) string {
	if meta == nil {
		return ""
	}
	return meta.Description
}

func fieldDefs(d *qDim) []string {
	if d == nil {
		return nil
	}
	return d.QFieldDefs
}

func fieldLabels(d *qDim) []string {
	if d == nil {
		return nil
	}
	return d.QFieldLabels
}

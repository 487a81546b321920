package tmdl

import (
	"fmt"
	"strings"

	"github.com/semshift/semshift/internal/pbi"
)

// CalendarTable builds a date table spanning the given years (inclusive)
// with a List.Dates partition and a Today measure. Zero years default to
// 2020 through 2030.
func CalendarTable(startYear, endYear int) pbi.Table {
	if startYear == 0 {
		startYear = 2020
	}
	if endYear == 0 {
		endYear = 2030
	}

	source := fmt.Sprintf(`let
    StartDate = #date(%d, 1, 1),
    EndDate = #date(%d, 12, 31),
    DayCount = Duration.Days(EndDate - StartDate) + 1,
    Source = List.Dates(StartDate, DayCount, #duration(1, 0, 0, 0)),
    Table = Table.FromList(Source, Splitter.SplitByNothing(), {"Date"}, null, ExtraValues.Error),
    ChangedType = Table.TransformColumnTypes(Table, {{"Date", type date}}),
    AddYear = Table.AddColumn(ChangedType, "Year", each Date.Year([Date]), Int64.Type),
    AddMonth = Table.AddColumn(AddYear, "Month", each Date.Month([Date]), Int64.Type),
    AddMonthName = Table.AddColumn(AddMonth, "MonthName", each Date.MonthName([Date]), type text),
    AddQuarter = Table.AddColumn(AddMonthName, "Quarter", each Date.QuarterOfYear([Date]), Int64.Type),
    AddQuarterLabel = Table.AddColumn(AddQuarter, "QuarterLabel", each "Q" & Text.From(Date.QuarterOfYear([Date])), type text),
    AddDayOfWeek = Table.AddColumn(AddQuarterLabel, "DayOfWeek", each Date.DayOfWeek([Date], Day.Monday) + 1, Int64.Type),
    AddDayName = Table.AddColumn(AddDayOfWeek, "DayName", each Date.DayOfWeekName([Date]), type text),
    AddWeekNumber = Table.AddColumn(AddDayName, "WeekNumber", each Date.WeekOfYear([Date]), Int64.Type),
    AddIsWeekend = Table.AddColumn(AddWeekNumber, "IsWeekend", each Date.DayOfWeek([Date], Day.Monday) >= 5, type logical)
in
    AddIsWeekend`, startYear, endYear)

	intCol := func(name string) pbi.Column {
		return pbi.Column{Name: name, DataType: pbi.TypeInt64, SourceColumn: name}
	}
	return pbi.Table{
		Name: "Calendar",
		Columns: []pbi.Column{
			{Name: "Date", DataType: pbi.TypeDateTime, SourceColumn: "Date",
				FormatString: "yyyy-MM-dd", DataCategory: "Time"},
			intCol("Year"),
			intCol("Month"),
			{Name: "MonthName", DataType: pbi.TypeString, SourceColumn: "MonthName", SortByColumn: "Month"},
			intCol("Quarter"),
			{Name: "QuarterLabel", DataType: pbi.TypeString, SourceColumn: "QuarterLabel", SortByColumn: "Quarter"},
			intCol("DayOfWeek"),
			{Name: "DayName", DataType: pbi.TypeString, SourceColumn: "DayName", SortByColumn: "DayOfWeek"},
			intCol("WeekNumber"),
			{Name: "IsWeekend", DataType: pbi.TypeBoolean, SourceColumn: "IsWeekend"},
		},
		Measures: []pbi.Measure{
			{Name: "Today", Expression: "TODAY()", FormatString: "yyyy-MM-dd"},
		},
		Partition: &pbi.Partition{Mode: "import", Source: source},
	}
}

// ParameterTable builds a what-if parameter table: a GENERATESERIES
// calculated column and a SELECTEDVALUE measure defaulting to the
// configured value.
func ParameterTable(p Parameter) pbi.Table {
	step := p.Step
	if step == 0 {
		step = 1
	}
	valueCol := p.Name + " Value"
	return pbi.Table{
		Name: p.Name,
		Columns: []pbi.Column{
			{
				Name:       valueCol,
				DataType:   pbi.TypeDouble,
				Expression: fmt.Sprintf("GENERATESERIES(%g, %g, %g)", p.Min, p.Max, step),
			},
		},
		Measures: []pbi.Measure{
			{
				Name: strings.ReplaceAll(p.Name, " ", "") + "Value",
				Expression: fmt.Sprintf("SELECTEDVALUE('%s'[%s], %g)",
					p.Name, valueCol, p.Default),
			},
		},
	}
}

var geoCategories = map[string]string{
	"country":       "Country",
	"countryregion": "Country",
	"state":         "StateOrProvince",
	"province":      "StateOrProvince",
	"region":        "StateOrProvince",
	"city":          "City",
	"postalcode":    "PostalCode",
	"zipcode":       "PostalCode",
	"zip":           "PostalCode",
	"address":       "Address",
	"county":        "County",
	"continent":     "Continent",
	"latitude":      "Latitude",
	"lat":           "Latitude",
	"longitude":     "Longitude",
	"lon":           "Longitude",
	"lng":           "Longitude",
	"place":         "Place",
}

// DataCategory returns the geographic data category for a column name,
// or "" when the name is not geographic. Matching is by exact lowercase
// name.
func DataCategory(columnName string) string {
	return geoCategories[strings.ToLower(strings.TrimSpace(columnName))]
}

// Package visuals scaffolds report pages: one page per source sheet,
// each visualization mapped to its closest target visual type with its
// dimensions and measures bound into the visual's data roles.
package visuals

import (
	"regexp"
	"strings"
)

// typeMap resolves source visualization types to target visual types.
// Unknown types fall back to tableEx.
var typeMap = map[string]string{
	"barchart":             "clusteredBarChart",
	"bar":                  "clusteredBarChart",
	"stackedbarchart":      "stackedBarChart",
	"stacked-bar":          "stackedBarChart",
	"columnchart":          "clusteredColumnChart",
	"column":               "clusteredColumnChart",
	"stackedcolumnchart":   "stackedColumnChart",
	"stacked-column":       "stackedColumnChart",
	"histogram":            "clusteredColumnChart",
	"linechart":            "lineChart",
	"line":                 "lineChart",
	"sparkline":            "lineChart",
	"areachart":            "areaChart",
	"area":                 "areaChart",
	"stackedareachart":     "stackedAreaChart",
	"combo":                "lineStackedColumnComboChart",
	"combochart":           "lineStackedColumnComboChart",
	"linecolumnchart":      "lineStackedColumnComboChart",
	"piechart":             "pieChart",
	"pie":                  "pieChart",
	"donutchart":           "donutChart",
	"donut":                "donutChart",
	"funnel":               "funnel",
	"funnelchart":          "funnel",
	"scatter":              "scatterChart",
	"scatterplot":          "scatterChart",
	"scatterchart":         "scatterChart",
	"bubble":               "scatterChart",
	"bubblechart":          "scatterChart",
	"distributionplot":     "scatterChart",
	"map":                  "map",
	"geomap":               "map",
	"filledmap":            "filledMap",
	"table":                "tableEx",
	"straight-table":       "tableEx",
	"straighttable":        "tableEx",
	"tableex":              "tableEx",
	"pivot-table":          "pivotTable",
	"pivottable":           "pivotTable",
	"pivot":                "pivotTable",
	"matrix":               "pivotTable",
	"kpi":                  "card",
	"card":                 "card",
	"multirowcard":         "multiRowCard",
	"multi-kpi":            "multiRowCard",
	"gauge":                "gauge",
	"meter":                "gauge",
	"treemap":              "treemap",
	"waterfall":            "waterfallChart",
	"waterfallchart":       "waterfallChart",
	"boxplot":              "boxAndWhisker",
	"box-and-whisker":      "boxAndWhisker",
	"text-image":           "textbox",
	"textbox":              "textbox",
	"text":                 "textbox",
	"image":                "image",
	"button":               "actionButton",
	"actionbutton":         "actionButton",
	"container":            "actionButton",
	"filterpane":           "slicer",
	"slicer":               "slicer",
	"listbox":              "slicer",
	"wordcloud":            "wordCloud",
	"word-cloud":           "wordCloud",
	"ribbonchart":          "ribbonChart",
	"mekko":                "stackedBarChart",
	"mekkochart":           "stackedBarChart",
	"clusteredbarchart":    "clusteredBarChart",
	"clusteredcolumnchart": "clusteredColumnChart",
}

// TypeFor maps a source visualization type to its target visual type.
// The second return is false for unmapped types, which render as tableEx.
func TypeFor(qlikType string) (string, bool) {
	t, ok := typeMap[strings.ToLower(strings.TrimSpace(qlikType))]
	if !ok {
		return "tableEx", false
	}
	return t, true
}

// roles names the data roles a visual type binds: dimensions into the
// first set, measures into the second.
type roles struct {
	dims []string
	meas []string
}

var dataRoles = map[string]roles{
	"card":                        {nil, []string{"Fields"}},
	"multiRowCard":                {nil, []string{"Values"}},
	"clusteredBarChart":           {[]string{"Category"}, []string{"Y"}},
	"stackedBarChart":             {[]string{"Category", "Series"}, []string{"Y"}},
	"clusteredColumnChart":        {[]string{"Category"}, []string{"Y"}},
	"stackedColumnChart":          {[]string{"Category", "Series"}, []string{"Y"}},
	"lineChart":                   {[]string{"Category"}, []string{"Y"}},
	"areaChart":                   {[]string{"Category"}, []string{"Y"}},
	"stackedAreaChart":            {[]string{"Category", "Series"}, []string{"Y"}},
	"pieChart":                    {[]string{"Category"}, []string{"Y"}},
	"donutChart":                  {[]string{"Category"}, []string{"Y"}},
	"waterfallChart":              {[]string{"Category"}, []string{"Y"}},
	"funnel":                      {[]string{"Category"}, []string{"Y"}},
	"gauge":                       {nil, []string{"Y", "MinValue", "MaxValue", "TargetValue"}},
	"treemap":                     {[]string{"Group"}, []string{"Values"}},
	"scatterChart":                {[]string{"Category", "Details"}, []string{"X", "Y", "Size"}},
	"tableEx":                     {[]string{"Values"}, []string{"Values"}},
	"pivotTable":                  {[]string{"Rows", "Columns"}, []string{"Values"}},
	"slicer":                      {[]string{"Values"}, nil},
	"lineStackedColumnComboChart": {[]string{"Category"}, []string{"ColumnY", "LineY"}},
	"map":                         {[]string{"Category", "Location"}, []string{"Size", "Color"}},
	"filledMap":                   {[]string{"Location"}, []string{"Color"}},
	"ribbonChart":                 {[]string{"Category", "Series"}, []string{"Y"}},
	"boxAndWhisker":               {[]string{"Category", "Sampling"}, []string{"Value"}},
	"wordCloud":                   {[]string{"Category"}, []string{"Values"}},
}

// aggFuncs maps aggregation names in source expressions to target
// aggregation function codes.
var aggFuncs = map[string]int{
	"sum":          1,
	"min":          2,
	"max":          3,
	"count":        4,
	"countnonnull": 5,
	"avg":          6,
	"average":      6,
}

var simpleAggRe = regexp.MustCompile(`^(\w+)\((\w+)\)$`)

// parseAggregation splits a simple aggregate expression like Sum(Amount)
// into its function and column. Anything else returns the trimmed
// expression as the column with no function.
func parseAggregation(expr string) (fn, column string) {
	expr = strings.TrimSpace(expr)
	if m := simpleAggRe.FindStringSubmatch(expr); m != nil {
		return strings.ToLower(m[1]), m[2]
	}
	return "", expr
}

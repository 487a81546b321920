package api

import (
	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/selection"
)

// StatusResponse reports whether a run is in progress and what the last
// run produced.
type StatusResponse struct {
	Running     bool             `json:"running"`
	LastError   string           `json:"last_error,omitempty"`
	ProjectPath string           `json:"project_path,omitempty"`
	GuidePath   string           `json:"guide_path,omitempty"`
	ReportPath  string           `json:"report_path,omitempty"`
	Progress    *engine.Progress `json:"progress,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// SourceResponse summarizes the extracted source application.
type SourceResponse struct {
	Name           string   `json:"name"`
	Tables         int      `json:"tables"`
	Fields         int      `json:"fields"`
	Measures       int      `json:"measures"`
	Dimensions     int      `json:"dimensions"`
	Sheets         int      `json:"sheets"`
	Visualizations int      `json:"visualizations"`
	Datasources    int      `json:"datasources"`
	TableNames     []string `json:"table_names"`
	SheetNames     []string `json:"sheet_names"`
	Warnings       []string `json:"warnings,omitempty"`
}

// SelectionRequest is the request body for POST /api/selection.
type SelectionRequest struct {
	IncludeTables []string `json:"include_tables,omitempty"`
	ExcludeTables []string `json:"exclude_tables,omitempty"`
	IncludeSheets []string `json:"include_sheets,omitempty"`
	ExcludeSheets []string `json:"exclude_sheets,omitempty"`
}

func (r *SelectionRequest) toRules() selection.Rules {
	return selection.Rules{
		IncludeTables: r.IncludeTables,
		ExcludeTables: r.ExcludeTables,
		IncludeSheets: r.IncludeSheets,
		ExcludeSheets: r.ExcludeSheets,
	}
}

// AsyncAcceptedResponse is the response for async operations returning 202.
type AsyncAcceptedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

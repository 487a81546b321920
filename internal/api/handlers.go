package api

import (
	"encoding/json"
	"net/http"
	"os"
	"sort"

	"github.com/semshift/semshift/internal/engine"
	"github.com/semshift/semshift/internal/estimate"
	"github.com/semshift/semshift/internal/extract"
	"github.com/semshift/semshift/internal/guide"
	"github.com/semshift/semshift/internal/qlik"
	"github.com/semshift/semshift/internal/selection"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.engine.Config == nil {
		s.writeError(w, http.StatusNotFound, "no configuration loaded")
		return
	}
	s.writeJSON(w, http.StatusOK, s.engine.Config)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	app, warnings, err := s.loadSource()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	fields := 0
	tableNames := make([]string, 0, len(app.Tables))
	for _, t := range app.Tables {
		fields += len(t.Fields)
		tableNames = append(tableNames, t.Name)
	}
	sheetNames := make([]string, 0, len(app.Sheets))
	for _, sh := range app.Sheets {
		sheetNames = append(sheetNames, sh.Name)
	}
	sort.Strings(tableNames)
	sort.Strings(sheetNames)

	s.writeJSON(w, http.StatusOK, SourceResponse{
		Name:           app.Name,
		Tables:         len(app.Tables),
		Fields:         fields,
		Measures:       len(app.Measures),
		Dimensions:     len(app.Dimensions),
		Sheets:         len(app.Sheets),
		Visualizations: len(app.Visualizations),
		Datasources:    len(app.Datasources),
		TableNames:     tableNames,
		SheetNames:     sheetNames,
		Warnings:       warnings,
	})
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	app, _, err := s.loadSource()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, estimate.Estimate(app))
}

// loadSource reads the configured source with the current selection
// rules applied.
func (s *Server) loadSource() (*qlik.App, []string, error) {
	app, warnings, err := extract.Read(s.engine.Config.Source.Path)
	if err != nil {
		return nil, nil, err
	}
	return selection.Apply(app, s.engine.Rules), warnings, nil
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Rules)
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.engine.Running() {
		s.writeError(w, http.StatusConflict, "cannot change selection while a run is in progress")
		return
	}
	s.engine.Rules = req.toRules()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartMigration(w http.ResponseWriter, r *http.Request) {
	var lastPhase engine.Phase
	progress := func(p engine.Progress) {
		if s.hub == nil {
			return
		}
		s.hub.BroadcastProgress(p)
		if p.Phase != lastPhase {
			lastPhase = p.Phase
			s.hub.BroadcastPhase(string(p.Phase))
		}
	}
	done := func(res *engine.Result, err error) {
		if s.hub == nil {
			return
		}
		if err != nil {
			s.hub.BroadcastError(err.Error())
			return
		}
		for _, warning := range res.Warnings {
			s.hub.BroadcastWarning(warning)
		}
	}

	if err := s.engine.Start(progress, done); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, AsyncAcceptedResponse{
		Status:  "accepted",
		Message: "migration run started",
	})
}

func (s *Server) handleMigrationStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Running: s.engine.Running()}
	if res, err := s.engine.Last(); err != nil {
		resp.LastError = err.Error()
	} else if res != nil {
		resp.ProjectPath = res.ProjectPath
		resp.GuidePath = res.GuidePath
		resp.ReportPath = res.ReportPath
		resp.Warnings = res.Warnings
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAbortMigration(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Running() {
		s.writeError(w, http.StatusConflict, "no run in progress")
		return
	}
	s.engine.Abort()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "aborting"})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	res, _ := s.engine.Last()
	if res == nil || res.Model == nil {
		s.writeError(w, http.StatusNotFound, "no model generated yet")
		return
	}
	s.writeJSON(w, http.StatusOK, res.Model)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	res, _ := s.engine.Last()
	if res == nil || res.Report == nil {
		s.writeError(w, http.StatusNotFound, "no report generated yet")
		return
	}
	s.writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) handleGetValidation(w http.ResponseWriter, r *http.Request) {
	res, _ := s.engine.Last()
	if res == nil || res.Validation == nil {
		s.writeError(w, http.StatusNotFound, "no validation results yet")
		return
	}
	s.writeJSON(w, http.StatusOK, res.Validation)
}

func (s *Server) handleGetGuide(w http.ResponseWriter, r *http.Request) {
	res, _ := s.engine.Last()
	if res == nil || res.GuidePath == "" {
		s.writeError(w, http.StatusNotFound, "no "+guide.GuideFile+" generated yet")
		return
	}
	data, err := os.ReadFile(res.GuidePath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(data)
}

// FullState builds the snapshot sent to WebSocket clients on connect.
func (s *Server) FullState() ([]byte, error) {
	resp := StatusResponse{Running: s.engine.Running()}
	if res, err := s.engine.Last(); err != nil {
		resp.LastError = err.Error()
	} else if res != nil {
		resp.ProjectPath = res.ProjectPath
		resp.GuidePath = res.GuidePath
		resp.ReportPath = res.ReportPath
		resp.Warnings = res.Warnings
	}
	return json.Marshal(resp)
}

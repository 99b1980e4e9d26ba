package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/trainlog/internal/models"
	"github.com/claude/trainlog/internal/service"
	"github.com/claude/trainlog/internal/storage"
)

func (s *Server) handleLogCompletion(w http.ResponseWriter, r *http.Request) {
	var rec models.CompletionRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	rec.UserID = userIDFromContext(r)

	id, err := s.svc.LogCompletion(r.Context(), rec)
	if err != nil {
		s.writeError(w, "log completion", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
}

func (s *Server) handleCompleteMetCon(w http.ResponseWriter, r *http.Request) {
	var req service.MetConRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	req.UserID = userIDFromContext(r)

	res, err := s.svc.CompleteMetCon(r.Context(), req)
	if err != nil {
		s.writeError(w, "complete metcon", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLogEngine(w http.ResponseWriter, r *http.Request) {
	var es models.EngineSession
	if err := json.NewDecoder(r.Body).Decode(&es); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	es.UserID = userIDFromContext(r)

	if err := s.svc.LogEngine(r.Context(), es); err != nil {
		s.writeError(w, "log engine session", err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

func (s *Server) handlePrograms(w http.ResponseWriter, r *http.Request) {
	programs, err := s.svc.Programs(r.Context(), userIDFromContext(r))
	if err != nil {
		s.writeError(w, "list programs", err)
		return
	}
	if programs == nil {
		programs = []storage.ProgramSummary{}
	}
	writeJSON(w, http.StatusOK, programs)
}

func (s *Server) handleProgramProgress(w http.ResponseWriter, r *http.Request) {
	programID, ok := int64Param(w, r, "programID")
	if !ok {
		return
	}
	pp, err := s.svc.ProgramProgress(r.Context(), userIDFromContext(r), programID)
	if err != nil {
		s.writeError(w, "program progress", err)
		return
	}
	writeJSON(w, http.StatusOK, pp)
}

func (s *Server) handleWeekProgress(w http.ResponseWriter, r *http.Request) {
	programID, ok := int64Param(w, r, "programID")
	if !ok {
		return
	}
	week, ok := intParam(w, r, "week")
	if !ok {
		return
	}
	wp, err := s.svc.WeekProgress(r.Context(), userIDFromContext(r), programID, week)
	if err != nil {
		s.writeError(w, "week progress", err)
		return
	}
	writeJSON(w, http.StatusOK, wp)
}

func (s *Server) handleDayProgress(w http.ResponseWriter, r *http.Request) {
	programID, ok := int64Param(w, r, "programID")
	if !ok {
		return
	}
	week, ok := intParam(w, r, "week")
	if !ok {
		return
	}
	day, ok := intParam(w, r, "day")
	if !ok {
		return
	}
	dp, err := s.svc.DayProgress(r.Context(), userIDFromContext(r), programID, week, day)
	if err != nil {
		s.writeError(w, "day progress", err)
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

func (s *Server) handlePercentile(w http.ResponseWriter, r *http.Request) {
	var req service.PercentileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	res, err := s.svc.Percentile(r.Context(), req)
	if err != nil {
		s.writeError(w, "percentile", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHeatMap(w http.ResponseWriter, r *http.Request) {
	var programID int64
	if p := r.URL.Query().Get("program"); p != "" {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid program parameter"})
			return
		}
		programID = id
	}
	hm, err := s.svc.HeatMap(r.Context(), userIDFromContext(r), programID, r.URL.Query().Get("equipment"))
	if err != nil {
		s.writeError(w, "heat map", err)
		return
	}
	writeJSON(w, http.StatusOK, hm)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), userIDFromContext(r), limit)
	if err != nil {
		s.writeError(w, "import logs", err)
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// writeError maps validation errors to 400, missing rows to 404 and
// everything else to 500.
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.log.Error(op+" error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

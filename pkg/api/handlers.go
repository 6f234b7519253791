package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
	"github.com/jakechorley/church-music-scheduler/pkg/core/series"
	"github.com/jakechorley/church-music-scheduler/pkg/core/services"
	"github.com/jakechorley/church-music-scheduler/pkg/db"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and reported as a 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *services.ValidationError
	var patternErr *recurrence.PatternError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: validationErr.Error(), Field: validationErr.Field})
	case errors.As(err, &patternErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: patternErr.Error(), Field: patternErr.Field})
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "not allowed to manage the schedule"})
	case errors.Is(err, services.ErrRootNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "series not found"})
	case errors.Is(err, db.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "events not found"})
	case errors.Is(err, services.ErrSlotTaken):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, series.ErrNoReplacementDates):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: series.ErrNoReplacementDates.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var patternErr *recurrence.PatternError
	if errors.As(err, &patternErr) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
}

// CreateSeries handles POST /api/v1/series
func (s *Server) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var req services.CreateRecurringEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	req.Actor = actorFrom(r)

	result, err := services.CreateRecurringEvent(r.Context(), s.store, s.logger, s.cfg, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// EditSeries handles PATCH /api/v1/series/{rootID}. A body with dryRun set
// returns the counts without writing.
func (s *Server) EditSeries(w http.ResponseWriter, r *http.Request) {
	var req services.EditSeriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	req.Actor = actorFrom(r)
	req.RootEventID = chi.URLParam(r, "rootID")

	result, err := services.EditSeries(r.Context(), s.store, s.logger, s.cfg, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// AutoAssign handles POST /api/v1/auto-assign
func (s *Server) AutoAssign(w http.ResponseWriter, r *http.Request) {
	var req services.AutoAssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	req.Actor = actorFrom(r)

	result, err := services.AutoAssign(r.Context(), s.store, s.logger, s.cfg, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

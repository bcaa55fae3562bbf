// Package handlers exposes the optimization module over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/pkg/logger"
)

// RunLister reads persisted run history.
type RunLister interface {
	List(limit int) ([]*optimization.RunRecord, error)
}

// Run-history pagination limits for GET /optimizer/runs.
const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// Handler handles HTTP requests for the optimization module.
type Handler struct {
	service *optimization.OptimizerService
	runs    RunLister
	log     zerolog.Logger
}

// NewHandler creates a new optimization handler. runs may be nil when no
// history store is configured.
func NewHandler(service *optimization.OptimizerService, runs RunLister, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		runs:    runs,
		log:     logger.Component(log, "optimizer_handler"),
	}
}

// RegisterRoutes registers the optimizer routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/optimizer", func(r chi.Router) {
		r.Get("/", h.HandleGetStatus)
		r.Post("/run", h.HandleRun)
		r.Get("/runs", h.HandleListRuns)
	})
}

// HandleGetStatus handles GET /api/optimizer/ - returns optimizer status and last run.
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":   "ready",
		"last_run": nil,
	}

	if last := h.service.LastRun(); last != nil {
		response["last_run"] = last
		response["last_run_time"] = last.CreatedAt.Format(time.RFC3339)
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleRun handles POST /api/optimizer/run - runs one optimization.
//
// Validation failures map to 400. An infeasible or non-converged problem is
// a business outcome, not a transport error: it returns 200 with
// success=false and the caller branches on the flag.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req optimization.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	rec, err := h.service.Run(req)
	if err != nil {
		switch {
		case errors.Is(err, optimization.ErrInvalidInput),
			errors.Is(err, optimization.ErrDimensionMismatch),
			errors.Is(err, optimization.ErrNumericDomain):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Msg("Optimization run failed")
			h.writeError(w, http.StatusInternalServerError, "Optimization failed")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

// HandleListRuns handles GET /api/optimizer/runs - returns recent run history.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeJSON(w, http.StatusOK, []interface{}{})
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	recs, err := h.runs.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}
	if recs == nil {
		recs = []*optimization.RunRecord{}
	}

	h.writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

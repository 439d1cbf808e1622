package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/foundups/pqn-detector/internal/detector"
	"github.com/foundups/pqn-detector/internal/ensemble"
	"github.com/foundups/pqn-detector/internal/journal"
	"github.com/foundups/pqn-detector/internal/symbols"
)

// DetectorHandlers serves run execution and journal queries.
type DetectorHandlers struct {
	journal *journal.Journal
	runner  *ensemble.Runner
	log     zerolog.Logger
}

// NewDetectorHandlers creates the detector API handlers.
func NewDetectorHandlers(j *journal.Journal, runner *ensemble.Runner, log zerolog.Logger) *DetectorHandlers {
	return &DetectorHandlers{
		journal: j,
		runner:  runner,
		log:     log.With().Str("component", "detector_handlers").Logger(),
	}
}

// RegisterRoutes registers detector routes on the given router.
func (h *DetectorHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/detector/defaults", h.HandleDefaults)
	r.Post("/runs", h.HandleCreateRun)
	r.Get("/runs", h.HandleListRuns)
	r.Get("/runs/{id}", h.HandleGetRun)
	r.Get("/runs/{id}/events", h.HandleRunEvents)
	r.Post("/ensemble", h.HandleEnsemble)
}

// HandleDefaults returns the default detector configuration.
// GET /api/detector/defaults
func (h *DetectorHandlers) HandleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, detector.DefaultConfig())
}

// runRequest is the body for POST /api/runs. Config is optional; omitted
// fields of a partial config fall back to defaults via JSON overlay.
type runRequest struct {
	Script string           `json:"script"`
	Config *detector.Config `json:"config,omitempty"`
}

// HandleCreateRun executes a detector run synchronously, journals it, and
// returns the finished run record.
// POST /api/runs
func (h *DetectorHandlers) HandleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	cfg := detector.DefaultConfig()
	if req.Config != nil {
		cfg = *req.Config
	}

	src, err := symbols.NewScriptSource(req.Script)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	drv, err := detector.New(cfg, h.log)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	run, err := h.journal.CreateRun(cfg, req.Script)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create run record")
		writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	result, err := drv.Run(r.Context(), src)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.journal.AppendEvents(run.ID, result.Events); err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to journal events")
		writeError(w, http.StatusInternalServerError, "failed to record events")
		return
	}
	if err := h.journal.FinishRun(run.ID, result.Steps, len(result.Events), result.FlagCounts); err != nil {
		h.log.Error().Err(err).Str("run_id", run.ID).Msg("Failed to finish run")
		writeError(w, http.StatusInternalServerError, "failed to finish run")
		return
	}

	finished, err := h.journal.GetRun(run.ID)
	if err != nil || finished == nil {
		writeError(w, http.StatusInternalServerError, "failed to load finished run")
		return
	}

	h.log.Info().
		Str("run_id", run.ID).
		Int("steps", result.Steps).
		Int("events", len(result.Events)).
		Msg("Run completed")
	writeJSON(w, http.StatusCreated, finished)
}

// HandleListRuns lists recent runs, newest first.
// GET /api/runs?limit=N
func (h *DetectorHandlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	runs, err := h.journal.ListRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []journal.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGetRun returns a single run record.
// GET /api/runs/{id}
func (h *DetectorHandlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.journal.GetRun(id)
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to get run")
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleRunEvents returns a run's journaled events in step order.
// GET /api/runs/{id}/events?limit=N
func (h *DetectorHandlers) HandleRunEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.journal.GetRun(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	events, err := h.journal.EventsForRun(id, queryInt(r, "limit", 0))
	if err != nil {
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load events")
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	if events == nil {
		events = []detector.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleEnsemble executes a sweep synchronously and returns the summary.
// Events are not journaled; only per-run aggregates come back.
// POST /api/ensemble
func (h *DetectorHandlers) HandleEnsemble(w http.ResponseWriter, r *http.Request) {
	var spec ensemble.Spec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	summary, err := h.runner.Run(r.Context(), spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

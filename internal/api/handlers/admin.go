package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/mastery/internal/service"
)

// AdminHandler exposes the background jobs for manual runs and the
// snapshots they produce.
type AdminHandler struct {
	sweep *service.ReviewSweepService
	tuner *service.ParameterTuner
}

func NewAdminHandler(sweep *service.ReviewSweepService, tuner *service.ParameterTuner) *AdminHandler {
	return &AdminHandler{sweep: sweep, tuner: tuner}
}

func (h *AdminHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sweep.RunSweep(r.Context()))
}

func (h *AdminHandler) TriggerTune(w http.ResponseWriter, r *http.Request) {
	result, err := h.tuner.RunAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := learnerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return
	}

	limit := 30
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	snaps, err := h.sweep.ListSnapshots(r.Context(), learnerID, limit)
	if err != nil {
		if errors.Is(err, service.ErrLearnerIDMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"count":     len(snaps),
	})
}

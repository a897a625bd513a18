package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/service"
	"github.com/go-chi/chi/v5"
)

type ParameterHandler struct {
	svc *service.ParameterService
}

func NewParameterHandler(svc *service.ParameterService) *ParameterHandler {
	return &ParameterHandler{svc: svc}
}

func (h *ParameterHandler) Get(w http.ResponseWriter, r *http.Request) {
	sp, err := h.svc.Get(r.Context(), chi.URLParam(r, "skillID"))
	if err != nil {
		if errors.Is(err, service.ErrSkillIDMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get parameters")
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

// Upsert stores tuned parameters. Out-of-range values are clamped and the
// stored set is returned.
func (h *ParameterHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req domain.ParameterSet
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sp, err := h.svc.Upsert(r.Context(), chi.URLParam(r, "skillID"), req)
	if err != nil {
		if errors.Is(err, service.ErrSkillIDMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store parameters")
		return
	}
	writeJSON(w, http.StatusOK, sp)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/mastery/internal/service"
	"github.com/go-chi/chi/v5"
)

type ItemHandler struct {
	svc *service.SkillMapService
}

func NewItemHandler(svc *service.SkillMapService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type setItemSkillsRequest struct {
	Skills         []string `json:"skills"`
	DefaultSkillID *string  `json:"default_skill_id,omitempty"`
}

func (h *ItemHandler) GetSkills(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetItemSkills(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrItemIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrItemMappingNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to get item skills")
		}
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *ItemHandler) SetSkills(w http.ResponseWriter, r *http.Request) {
	var req setItemSkillsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.svc.SetItemSkills(r.Context(), chi.URLParam(r, "itemID"), req.Skills, req.DefaultSkillID)
	if err != nil {
		if errors.Is(err, service.ErrItemIDMissing) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to set item skills")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/service"
	"github.com/go-chi/chi/v5"
)

type MasteryHandler struct {
	svc *service.MasteryService
}

func NewMasteryHandler(svc *service.MasteryService) *MasteryHandler {
	return &MasteryHandler{svc: svc}
}

type answerRequest struct {
	ItemID     string    `json:"item_id"`
	Correct    bool      `json:"correct"`
	OccurredAt time.Time `json:"occurred_at"`
}

type recordAnswersRequest struct {
	Answers []answerRequest `json:"answers"`
}

type rejectedTrack struct {
	Kind      domain.SubjectKind `json:"kind"`
	SubjectID string             `json:"subject_id"`
	Reason    string             `json:"reason"`
}

type recordAnswersResponse struct {
	Updated  []service.TrackUpdate `json:"updated"`
	Rejected []rejectedTrack       `json:"rejected"`
}

// RecordAnswers applies a session's answers. Tracks with ordering or
// timestamp problems are listed under rejected; the rest are committed.
func (h *MasteryHandler) RecordAnswers(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := learnerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return
	}

	var req recordAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answers := make([]domain.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, domain.Answer{
			ItemID:     a.ItemID,
			Correct:    a.Correct,
			OccurredAt: a.OccurredAt,
		})
	}

	result, err := h.svc.RecordAnswers(r.Context(), learnerID, answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoAnswers),
			errors.Is(err, service.ErrItemIDMissing),
			errors.Is(err, service.ErrLearnerIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to record answers")
		}
		return
	}

	resp := recordAnswersResponse{
		Updated:  result.Updated,
		Rejected: make([]rejectedTrack, 0, len(result.Rejected)),
	}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, rejectedTrack{
			Kind:      rej.Key.Kind,
			SubjectID: rej.Key.SubjectID,
			Reason:    rej.Reason,
		})
	}

	status := http.StatusOK
	if len(resp.Updated) == 0 && len(resp.Rejected) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (h *MasteryHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	key, ok := trackKeyParams(w, r)
	if !ok {
		return
	}

	view, err := h.svc.GetTrack(r.Context(), key)
	if err != nil {
		writeTrackError(w, err, "failed to get track")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// RebuildTrack replays the stored history of a track under its current
// parameters.
func (h *MasteryHandler) RebuildTrack(w http.ResponseWriter, r *http.Request) {
	key, ok := trackKeyParams(w, r)
	if !ok {
		return
	}

	view, err := h.svc.RebuildTrack(r.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeTrackError(w, err, "failed to rebuild track")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *MasteryHandler) GetReviewPlan(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := learnerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return
	}

	kind := domain.SubjectSkill
	if k := r.URL.Query().Get("kind"); k != "" {
		kind = domain.SubjectKind(k)
	}

	var threshold *float64
	if q := r.URL.Query(); q.Has("threshold") {
		v, err := strconv.ParseFloat(q.Get("threshold"), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid threshold")
			return
		}
		threshold = &v
	}

	plan, err := h.svc.GetReviewPlan(r.Context(), learnerID, kind, threshold)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidKind),
			errors.Is(err, service.ErrInvalidThreshold),
			errors.Is(err, service.ErrLearnerIDMissing):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to build review plan")
		}
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func trackKeyParams(w http.ResponseWriter, r *http.Request) (domain.TrackKey, bool) {
	learnerID, ok := learnerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return domain.TrackKey{}, false
	}
	kind := chi.URLParam(r, "kind")
	if !domain.ValidSubjectKind(kind) {
		writeError(w, http.StatusBadRequest, service.ErrInvalidKind.Error())
		return domain.TrackKey{}, false
	}
	return domain.TrackKey{
		LearnerID: learnerID,
		Kind:      domain.SubjectKind(kind),
		SubjectID: chi.URLParam(r, "subjectID"),
	}, true
}

func writeTrackError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, service.ErrLearnerIDMissing),
		errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrSubjectIDMissing):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, msg)
	}
}

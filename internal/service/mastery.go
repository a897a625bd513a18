package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxParallelTracks bounds how many tracks one RecordAnswers call updates at once.
const maxParallelTracks = 8

var (
	ErrLearnerIDMissing = errors.New("learner_id is required")
	ErrNoAnswers        = errors.New("at least one answer is required")
	ErrItemIDMissing    = errors.New("item_id is required")
	ErrSubjectIDMissing = errors.New("subject_id is required")
	ErrInvalidKind      = errors.New("kind must be skill or item")
	ErrTrackNotFound    = errors.New("track has no observation history")
)

// TrackUpdate is the outcome of applying a batch to one track.
type TrackUpdate struct {
	Key         domain.TrackKey     `json:"track"`
	PKnowBefore float64             `json:"p_know_before"`
	State       domain.MasteryState `json:"state"`
	Applied     int                 `json:"applied"`
	Review      domain.DueResult    `json:"review"`
}

// TrackRejection reports a track whose batch was refused. Nothing was
// written for it.
type TrackRejection struct {
	Key    domain.TrackKey `json:"track"`
	Reason string          `json:"reason"`
	Err    error           `json:"-"`
}

type RecordResult struct {
	Updated  []TrackUpdate    `json:"updated"`
	Rejected []TrackRejection `json:"rejected"`
}

// TrackView is a track's state together with the parameters and schedule
// that currently apply to it.
type TrackView struct {
	State  domain.MasteryState `json:"state"`
	Params domain.ParameterSet `json:"params"`
	Review domain.DueResult    `json:"review"`
}

type MasteryService struct {
	masteryStore     domain.MasteryStore
	parameterStore   domain.ParameterStore
	observationStore domain.ObservationStore
	skillMapStore    domain.SkillMapStore
	model            domain.ParameterModel
	locker           *TrackLocker
	logger           *zap.Logger

	dueThreshold float64
	now          func() time.Time
}

func NewMasteryService(
	ms domain.MasteryStore,
	ps domain.ParameterStore,
	ob domain.ObservationStore,
	sm domain.SkillMapStore,
	model domain.ParameterModel,
	logger *zap.Logger,
) *MasteryService {
	return &MasteryService{
		masteryStore:     ms,
		parameterStore:   ps,
		observationStore: ob,
		skillMapStore:    sm,
		model:            model,
		locker:           NewTrackLocker(),
		logger:           logger,
		dueThreshold:     DueThreshold,
		now:              time.Now,
	}
}

func (s *MasteryService) SetDueThreshold(threshold float64) {
	if ValidThreshold(threshold) {
		s.dueThreshold = threshold
	}
}

func (s *MasteryService) SetClock(now func() time.Time) {
	s.now = now
}

// RecordAnswers folds a session's answers into every track they touch: the
// item track of each answered item and the track of each skill the item maps
// to. Tracks are updated independently and in parallel; same-track updates
// are serialised and applied in timestamp order.
//
// A track whose batch violates ordering or carries a bad timestamp is
// reported in Rejected and left untouched. Store failures abort the call.
func (s *MasteryService) RecordAnswers(ctx context.Context, learnerID uuid.UUID, answers []domain.Answer) (*RecordResult, error) {
	if learnerID == uuid.Nil {
		return nil, ErrLearnerIDMissing
	}
	if len(answers) == 0 {
		return nil, ErrNoAnswers
	}
	for _, a := range answers {
		if a.ItemID == "" {
			return nil, ErrItemIDMissing
		}
	}

	now := s.now()

	batches, skillIDs, err := s.buildBatches(ctx, learnerID, answers)
	if err != nil {
		return nil, err
	}

	tuned, err := s.parameterStore.GetBySkillIDs(ctx, skillIDs)
	if err != nil {
		return nil, err
	}

	keys := make([]domain.TrackKey, 0, len(batches))
	for k := range batches {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	updates := make([]*TrackUpdate, len(keys))
	rejections := make([]*TrackRejection, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTracks)
	for i, key := range keys {
		i, key := i, key
		params := s.paramsFromTuned(key, tuned)
		g.Go(func() error {
			upd, rej, err := s.updateTrack(gctx, key, batches[key], params, now)
			if err != nil {
				return err
			}
			updates[i], rejections[i] = upd, rej
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &RecordResult{Updated: []TrackUpdate{}, Rejected: []TrackRejection{}}
	for i := range keys {
		if updates[i] != nil {
			result.Updated = append(result.Updated, *updates[i])
		}
		if rejections[i] != nil {
			result.Rejected = append(result.Rejected, *rejections[i])
		}
	}

	s.logger.Debug("answers recorded",
		zap.String("learner_id", learnerID.String()),
		zap.Int("answers", len(answers)),
		zap.Int("tracks_updated", len(result.Updated)),
		zap.Int("tracks_rejected", len(result.Rejected)))

	return result, nil
}

// buildBatches groups answers into one observation list per track.
func (s *MasteryService) buildBatches(ctx context.Context, learnerID uuid.UUID, answers []domain.Answer) (map[domain.TrackKey][]domain.Observation, []string, error) {
	batches := make(map[domain.TrackKey][]domain.Observation)
	resolved := make(map[string][]string)
	seenSkills := make(map[string]struct{})
	var skillIDs []string

	for _, a := range answers {
		skills, ok := resolved[a.ItemID]
		if !ok {
			var err error
			skills, err = s.skillMapStore.ResolveSkills(ctx, a.ItemID)
			if err != nil {
				return nil, nil, err
			}
			resolved[a.ItemID] = skills
		}

		itemKey := domain.TrackKey{LearnerID: learnerID, Kind: domain.SubjectItem, SubjectID: a.ItemID}
		batches[itemKey] = append(batches[itemKey], domain.Observation{
			SubjectID: a.ItemID, Correct: a.Correct, OccurredAt: a.OccurredAt,
		})

		for _, skillID := range skills {
			skillKey := domain.TrackKey{LearnerID: learnerID, Kind: domain.SubjectSkill, SubjectID: skillID}
			batches[skillKey] = append(batches[skillKey], domain.Observation{
				SubjectID: skillID, Correct: a.Correct, OccurredAt: a.OccurredAt,
			})
			if _, seen := seenSkills[skillID]; !seen {
				seenSkills[skillID] = struct{}{}
				skillIDs = append(skillIDs, skillID)
			}
		}
	}
	return batches, skillIDs, nil
}

func (s *MasteryService) updateTrack(ctx context.Context, key domain.TrackKey, obs []domain.Observation, params domain.ParameterSet, now time.Time) (*TrackUpdate, *TrackRejection, error) {
	unlock := s.locker.Lock(key)
	defer unlock()

	current, err := s.masteryStore.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	track := NewTrack(key, current, params)
	before := track.State.PKnow

	steps, err := track.Apply(obs, now)
	if err != nil {
		if errors.Is(err, ErrOrderingViolation) || errors.Is(err, ErrInvalidTimestamp) {
			s.logger.Warn("rejected observations for track",
				zap.String("track", key.String()),
				zap.Int("observations", len(obs)),
				zap.Error(err))
			return nil, &TrackRejection{Key: key, Reason: err.Error(), Err: err}, nil
		}
		return nil, nil, err
	}

	if err := s.masteryStore.SaveTrack(ctx, &track.State, track.Records(steps)); err != nil {
		return nil, nil, err
	}

	return &TrackUpdate{
		Key:         key,
		PKnowBefore: before,
		State:       track.State,
		Applied:     len(steps),
		Review:      Due(SubjectState{State: track.State, Params: params}, s.dueThreshold, now),
	}, nil, nil
}

// GetTrack returns a track's state, or a fresh state at pInit when the
// learner has never been observed on it.
func (s *MasteryService) GetTrack(ctx context.Context, key domain.TrackKey) (*TrackView, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	params, err := s.paramsFor(ctx, key)
	if err != nil {
		return nil, err
	}

	current, err := s.masteryStore.Get(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	track := NewTrack(key, current, params)

	return &TrackView{
		State:  track.State,
		Params: params,
		Review: Due(SubjectState{State: track.State, Params: params}, s.dueThreshold, s.now()),
	}, nil
}

// GetReviewPlan schedules every tracked subject of one kind for a learner.
// A nil threshold uses the configured due threshold.
func (s *MasteryService) GetReviewPlan(ctx context.Context, learnerID uuid.UUID, kind domain.SubjectKind, threshold *float64) (*domain.ReviewPlan, error) {
	if learnerID == uuid.Nil {
		return nil, ErrLearnerIDMissing
	}
	if !domain.ValidSubjectKind(string(kind)) {
		return nil, ErrInvalidKind
	}
	th := s.dueThreshold
	if threshold != nil {
		th = *threshold
	}
	if !ValidThreshold(th) {
		return nil, ErrInvalidThreshold
	}

	subjects, err := s.loadSubjects(ctx, learnerID, kind)
	if err != nil {
		return nil, err
	}

	plan := Aggregate(subjects, th, s.now())
	return &plan, nil
}

// loadSubjects pairs every stored state of kind with its parameters.
func (s *MasteryService) loadSubjects(ctx context.Context, learnerID uuid.UUID, kind domain.SubjectKind) ([]SubjectState, error) {
	states, err := s.masteryStore.ListByLearner(ctx, learnerID, kind)
	if err != nil {
		return nil, err
	}

	tuned := map[string]domain.ParameterSet{}
	if kind == domain.SubjectSkill && len(states) > 0 {
		ids := make([]string, 0, len(states))
		for _, st := range states {
			ids = append(ids, st.SubjectID)
		}
		tuned, err = s.parameterStore.GetBySkillIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	}

	subjects := make([]SubjectState, 0, len(states))
	for _, st := range states {
		subjects = append(subjects, SubjectState{
			State:  st,
			Params: s.paramsFromTuned(st.Key(), tuned),
		})
	}
	return subjects, nil
}

// RebuildTrack replays a track's stored history from pInit under the
// parameters that apply now and overwrites the stored state. The history
// itself is not rewritten.
func (s *MasteryService) RebuildTrack(ctx context.Context, key domain.TrackKey) (*TrackView, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	params, err := s.paramsFor(ctx, key)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(key)
	defer unlock()

	history, err := s.observationStore.ListByTrack(ctx, key, 0)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, ErrTrackNotFound
	}

	obs := make([]domain.Observation, 0, len(history))
	for _, r := range history {
		obs = append(obs, r.Observation())
	}

	now := s.now()
	track := NewTrack(key, nil, params)
	if _, err := track.Apply(obs, now); err != nil {
		return nil, err
	}
	if err := s.masteryStore.Upsert(ctx, &track.State); err != nil {
		return nil, err
	}

	s.logger.Info("track rebuilt",
		zap.String("track", key.String()),
		zap.Int("observations", len(obs)),
		zap.Float64("p_know", track.State.PKnow))

	return &TrackView{
		State:  track.State,
		Params: params,
		Review: Due(SubjectState{State: track.State, Params: params}, s.dueThreshold, now),
	}, nil
}

// paramsFor resolves the parameter set of a single track. Items always use
// the defaults; skills use their tuned set when one exists.
func (s *MasteryService) paramsFor(ctx context.Context, key domain.TrackKey) (domain.ParameterSet, error) {
	if key.Kind != domain.SubjectSkill {
		return s.model.Defaults(), nil
	}
	sp, err := s.parameterStore.GetBySkillID(ctx, key.SubjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.model.Defaults(), nil
		}
		return domain.ParameterSet{}, err
	}
	return s.model.Resolve(&sp.Params), nil
}

func (s *MasteryService) paramsFromTuned(key domain.TrackKey, tuned map[string]domain.ParameterSet) domain.ParameterSet {
	if key.Kind == domain.SubjectSkill {
		if p, ok := tuned[key.SubjectID]; ok {
			return s.model.Resolve(&p)
		}
	}
	return s.model.Defaults()
}

func validateKey(key domain.TrackKey) error {
	if key.LearnerID == uuid.Nil {
		return ErrLearnerIDMissing
	}
	if !domain.ValidSubjectKind(string(key.Kind)) {
		return ErrInvalidKind
	}
	if key.SubjectID == "" {
		return ErrSubjectIDMissing
	}
	return nil
}

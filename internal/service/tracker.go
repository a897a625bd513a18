package service

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
)

// MaxClockSkew is how far in the future an observation may be stamped
// before it is treated as malformed.
const MaxClockSkew = 5 * time.Minute

var (
	ErrOrderingViolation = errors.New("observation precedes last update of track")
	ErrInvalidTimestamp  = errors.New("invalid observation timestamp")
)

// ApplyObservation projects forgetting since the state's last update, folds in
// the observation and stamps the state with the observation time. now is only
// used to reject timestamps from the future.
//
// An observation older than LastUpdatedAt returns ErrOrderingViolation and the
// state is returned unchanged.
func ApplyObservation(state domain.MasteryState, obs domain.Observation, params domain.ParameterSet, now time.Time) (domain.MasteryState, error) {
	next, _, err := applyObservation(state, obs, params, now)
	return next, err
}

// applyObservation also returns the forgetting-adjusted prior the update
// started from.
func applyObservation(state domain.MasteryState, obs domain.Observation, params domain.ParameterSet, now time.Time) (domain.MasteryState, float64, error) {
	if err := validateTimestamp(obs.OccurredAt, now); err != nil {
		return state, state.PKnow, err
	}

	prior := state.PKnow
	if state.LastUpdatedAt != nil {
		if obs.OccurredAt.Before(*state.LastUpdatedAt) {
			return state, prior, fmt.Errorf("%w: observation at %s, track updated at %s",
				ErrOrderingViolation,
				obs.OccurredAt.UTC().Format(time.RFC3339),
				state.LastUpdatedAt.UTC().Format(time.RFC3339))
		}
		prior = Project(prior, ElapsedDays(*state.LastUpdatedAt, obs.OccurredAt), params.Forget)
	}

	at := obs.OccurredAt
	state.PKnow = Update(prior, obs.Correct, params)
	state.LastUpdatedAt = &at
	state.Attempts++
	if obs.Correct {
		state.CorrectCount++
	}
	return state, prior, nil
}

// SortObservations returns a copy of obs in non-decreasing timestamp order.
// Observations with equal timestamps keep their submission order.
func SortObservations(obs []domain.Observation) []domain.Observation {
	sorted := make([]domain.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})
	return sorted
}

// Step records the effect of one observation within a batch. PKnowBefore is
// the prior after forgetting was projected.
type Step struct {
	Observation domain.Observation
	PKnowBefore float64
	PKnowAfter  float64
}

// ApplyBatch sequences obs by timestamp and applies them in order. The batch
// is all-or-nothing: on error the original state is returned and no steps.
func ApplyBatch(state domain.MasteryState, obs []domain.Observation, params domain.ParameterSet, now time.Time) (domain.MasteryState, []Step, error) {
	next := state
	steps := make([]Step, 0, len(obs))
	for _, o := range SortObservations(obs) {
		updated, prior, err := applyObservation(next, o, params, now)
		if err != nil {
			return state, nil, err
		}
		next = updated
		steps = append(steps, Step{Observation: o, PKnowBefore: prior, PKnowAfter: next.PKnow})
	}
	return next, steps, nil
}

func validateTimestamp(at, now time.Time) error {
	if at.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", ErrInvalidTimestamp)
	}
	if !now.IsZero() && at.After(now.Add(MaxClockSkew)) {
		return fmt.Errorf("%w: %s is in the future", ErrInvalidTimestamp, at.UTC().Format(time.RFC3339))
	}
	return nil
}

// Track binds a key to its current state and the parameter set used to update
// it. Item tracks and skill tracks share this code path.
type Track struct {
	Key    domain.TrackKey
	State  domain.MasteryState
	Params domain.ParameterSet
}

// NewTrack returns a track for key. A nil state starts the track at pInit.
func NewTrack(key domain.TrackKey, state *domain.MasteryState, params domain.ParameterSet) *Track {
	t := &Track{Key: key, Params: params}
	if state != nil {
		t.State = *state
	} else {
		t.State = domain.NewMasteryState(key, params)
	}
	return t
}

// Apply folds a batch of observations into the track.
func (t *Track) Apply(obs []domain.Observation, now time.Time) ([]Step, error) {
	next, steps, err := ApplyBatch(t.State, obs, t.Params, now)
	if err != nil {
		return nil, err
	}
	t.State = next
	return steps, nil
}

// Records converts applied steps into history entries for the track.
func (t *Track) Records(steps []Step) []domain.ObservationRecord {
	records := make([]domain.ObservationRecord, 0, len(steps))
	for _, s := range steps {
		records = append(records, domain.ObservationRecord{
			LearnerID:   t.Key.LearnerID,
			Kind:        t.Key.Kind,
			SubjectID:   t.Key.SubjectID,
			Correct:     s.Observation.Correct,
			OccurredAt:  s.Observation.OccurredAt,
			PKnowBefore: s.PKnowBefore,
			PKnowAfter:  s.PKnowAfter,
		})
	}
	return records
}

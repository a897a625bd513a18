package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackerNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func freshState(params domain.ParameterSet) domain.MasteryState {
	key := domain.TrackKey{LearnerID: uuid.New(), Kind: domain.SubjectSkill, SubjectID: "fractions"}
	return domain.NewMasteryState(key, params)
}

func TestApplyObservation_FirstObservationSkipsDecay(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	at := trackerNow.Add(-time.Hour)

	next, err := ApplyObservation(state, domain.Observation{Correct: true, OccurredAt: at}, params, trackerNow)
	require.NoError(t, err)

	assert.InDelta(t, 0.600, next.PKnow, 0.001)
	require.NotNil(t, next.LastUpdatedAt)
	assert.True(t, next.LastUpdatedAt.Equal(at))
	assert.Equal(t, 1, next.Attempts)
	assert.Equal(t, 1, next.CorrectCount)

	// Input is a value; the caller's copy is untouched.
	assert.Nil(t, state.LastUpdatedAt)
	assert.Equal(t, 0.20, state.PKnow)
}

func TestApplyObservation_ProjectsForgettingFirst(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	last := trackerNow.AddDate(0, 0, -10)
	state.PKnow = 0.90
	state.LastUpdatedAt = &last

	next, steps, err := ApplyBatch(state, []domain.Observation{{Correct: false, OccurredAt: trackerNow}}, params, trackerNow)
	require.NoError(t, err)
	require.Len(t, steps, 1)

	assert.InDelta(t, 0.814, steps[0].PKnowBefore, 0.001)
	assert.InDelta(t, Update(Project(0.90, 10, params.Forget), false, params), next.PKnow, 1e-12)
	assert.Equal(t, next.PKnow, steps[0].PKnowAfter)
}

func TestApplyObservation_PartialDaysDoNotDecay(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	last := trackerNow.Add(-23 * time.Hour)
	state.PKnow = 0.90
	state.LastUpdatedAt = &last

	_, steps, err := ApplyBatch(state, []domain.Observation{{Correct: true, OccurredAt: trackerNow}}, params, trackerNow)
	require.NoError(t, err)
	assert.Equal(t, 0.90, steps[0].PKnowBefore)
}

func TestApplyObservation_OrderingViolation(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	last := trackerNow.Add(-time.Hour)
	state.PKnow = 0.5
	state.LastUpdatedAt = &last

	next, err := ApplyObservation(state, domain.Observation{Correct: true, OccurredAt: last.Add(-time.Second)}, params, trackerNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrderingViolation))
	assert.Equal(t, state, next)
}

func TestApplyObservation_EqualTimestampAccepted(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	last := trackerNow.Add(-time.Hour)
	state.LastUpdatedAt = &last

	next, err := ApplyObservation(state, domain.Observation{Correct: true, OccurredAt: last}, params, trackerNow)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Attempts)
}

func TestApplyObservation_InvalidTimestamps(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)

	tests := []struct {
		name string
		at   time.Time
		ok   bool
	}{
		{"zero", time.Time{}, false},
		{"beyond skew", trackerNow.Add(MaxClockSkew + time.Second), false},
		{"at skew limit", trackerNow.Add(MaxClockSkew), true},
		{"past", trackerNow.AddDate(-1, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyObservation(state, domain.Observation{Correct: true, OccurredAt: tt.at}, params, trackerNow)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTimestamp)
			}
		})
	}
}

func TestApplyBatch_SortsByTimestamp(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)

	t1 := trackerNow.AddDate(0, 0, -5)
	t2 := trackerNow.AddDate(0, 0, -2)
	t3 := trackerNow.Add(-time.Hour)

	shuffled := []domain.Observation{
		{Correct: true, OccurredAt: t3},
		{Correct: false, OccurredAt: t1},
		{Correct: true, OccurredAt: t2},
	}

	got, steps, err := ApplyBatch(state, shuffled, params, trackerNow)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.True(t, steps[0].Observation.OccurredAt.Equal(t1))
	assert.True(t, steps[2].Observation.OccurredAt.Equal(t3))

	want := state
	for _, o := range []domain.Observation{shuffled[1], shuffled[2], shuffled[0]} {
		want, err = ApplyObservation(want, o, params, trackerNow)
		require.NoError(t, err)
	}
	assert.InDelta(t, want.PKnow, got.PKnow, 1e-12)
	assert.Equal(t, 3, got.Attempts)
	assert.Equal(t, 2, got.CorrectCount)
	assert.True(t, got.LastUpdatedAt.Equal(t3))
}

func TestApplyBatch_AllOrNothing(t *testing.T) {
	params := domain.DefaultParameters()
	state := freshState(params)
	last := trackerNow.AddDate(0, 0, -1)
	state.PKnow = 0.5
	state.LastUpdatedAt = &last

	t.Run("one stale observation rejects the batch", func(t *testing.T) {
		obs := []domain.Observation{
			{Correct: true, OccurredAt: trackerNow.Add(-time.Minute)},
			{Correct: true, OccurredAt: last.Add(-time.Hour)},
		}
		got, steps, err := ApplyBatch(state, obs, params, trackerNow)
		assert.ErrorIs(t, err, ErrOrderingViolation)
		assert.Nil(t, steps)
		assert.Equal(t, state, got)
	})

	t.Run("one future observation rejects the batch", func(t *testing.T) {
		obs := []domain.Observation{
			{Correct: true, OccurredAt: trackerNow.Add(-time.Minute)},
			{Correct: true, OccurredAt: trackerNow.Add(time.Hour)},
		}
		got, steps, err := ApplyBatch(state, obs, params, trackerNow)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
		assert.Nil(t, steps)
		assert.Equal(t, state, got)
	})
}

func TestSortObservations_StableAndNonMutating(t *testing.T) {
	at := trackerNow.Add(-time.Hour)
	in := []domain.Observation{
		{SubjectID: "b", OccurredAt: at},
		{SubjectID: "a", OccurredAt: at.Add(-time.Minute)},
		{SubjectID: "c", OccurredAt: at},
	}

	got := SortObservations(in)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].SubjectID, got[1].SubjectID, got[2].SubjectID})
	assert.Equal(t, "b", in[0].SubjectID)
}

func TestTrack_NilStateStartsAtPInit(t *testing.T) {
	params := domain.ParameterSet{PInit: 0.35, PTransit: 0.1, Slip: 0.1, Guess: 0.2}
	key := domain.TrackKey{LearnerID: uuid.New(), Kind: domain.SubjectItem, SubjectID: "q-17"}

	track := NewTrack(key, nil, params)
	assert.Equal(t, 0.35, track.State.PKnow)
	assert.Equal(t, key, track.State.Key())
}

func TestTrack_ApplyAndRecords(t *testing.T) {
	params := domain.DefaultParameters()
	key := domain.TrackKey{LearnerID: uuid.New(), Kind: domain.SubjectItem, SubjectID: "q-17"}
	track := NewTrack(key, nil, params)

	obs := []domain.Observation{
		{SubjectID: "q-17", Correct: true, OccurredAt: trackerNow.Add(-2 * time.Hour)},
		{SubjectID: "q-17", Correct: false, OccurredAt: trackerNow.Add(-time.Hour)},
	}
	steps, err := track.Apply(obs, trackerNow)
	require.NoError(t, err)

	records := track.Records(steps)
	require.Len(t, records, 2)
	assert.Equal(t, key.LearnerID, records[0].LearnerID)
	assert.Equal(t, domain.SubjectItem, records[0].Kind)
	assert.Equal(t, "q-17", records[0].SubjectID)
	assert.InDelta(t, 0.20, records[0].PKnowBefore, 1e-12)
	assert.InDelta(t, 0.600, records[0].PKnowAfter, 0.001)
	assert.Equal(t, records[0].PKnowAfter, records[1].PKnowBefore)
	assert.Equal(t, track.State.PKnow, records[1].PKnowAfter)
}

func TestTrack_ApplyErrorLeavesStateUntouched(t *testing.T) {
	params := domain.DefaultParameters()
	key := domain.TrackKey{LearnerID: uuid.New(), Kind: domain.SubjectSkill, SubjectID: "fractions"}
	track := NewTrack(key, nil, params)
	before := track.State

	_, err := track.Apply([]domain.Observation{{Correct: true}}, trackerNow)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
	assert.Equal(t, before, track.State)
}

package domain

import (
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestParameterSet_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   ParameterSet
		want ParameterSet
	}{
		{
			name: "in range is unchanged",
			in:   ParameterSet{PInit: 0.2, PTransit: 0.1, Slip: 0.1, Guess: 0.18, Forget: ptr(0.01)},
			want: ParameterSet{PInit: 0.2, PTransit: 0.1, Slip: 0.1, Guess: 0.18, Forget: ptr(0.01)},
		},
		{
			name: "above bounds are lowered",
			in:   ParameterSet{PInit: 0.9, PTransit: 0.5, Slip: 0.6, Guess: 0.7, Forget: ptr(0.3)},
			want: ParameterSet{PInit: MaxPInit, PTransit: MaxPTransit, Slip: MaxSlip, Guess: MaxGuess, Forget: ptr(MaxForget)},
		},
		{
			name: "negatives are raised to zero",
			in:   ParameterSet{PInit: -1, PTransit: -0.1, Slip: -0.2, Guess: -0.3, Forget: ptr(-0.01)},
			want: ParameterSet{Forget: ptr(0)},
		},
		{
			name: "nil forget stays nil",
			in:   ParameterSet{PInit: 0.2, PTransit: 0.1, Slip: 0.1, Guess: 0.18},
			want: ParameterSet{PInit: 0.2, PTransit: 0.1, Slip: 0.1, Guess: 0.18},
		},
		{
			name: "NaN goes to the lower bound",
			in:   ParameterSet{PInit: math.NaN(), PTransit: 0.1, Slip: 0.1, Guess: 0.18},
			want: ParameterSet{PInit: 0, PTransit: 0.1, Slip: 0.1, Guess: 0.18},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamp()
			assert.InDelta(t, tt.want.PInit, got.PInit, 1e-12)
			assert.InDelta(t, tt.want.PTransit, got.PTransit, 1e-12)
			assert.InDelta(t, tt.want.Slip, got.Slip, 1e-12)
			assert.InDelta(t, tt.want.Guess, got.Guess, 1e-12)
			if tt.want.Forget == nil {
				assert.Nil(t, got.Forget)
			} else {
				require.NotNil(t, got.Forget)
				assert.InDelta(t, *tt.want.Forget, *got.Forget, 1e-12)
			}
		})
	}
}

func TestParameterSet_ClampKeepsGuessBelowOneMinusSlip(t *testing.T) {
	p := ParameterSet{Slip: MaxSlip, Guess: MaxGuess}.Clamp()
	assert.Less(t, p.Guess, 1-p.Slip-GuessSlipMargin+1e-9)
	assert.Less(t, p.Guess+p.Slip, 1.0)
}

func TestParameterSet_ClampIsIdempotent(t *testing.T) {
	in := ParameterSet{PInit: 0.7, PTransit: -1, Slip: 0.35, Guess: 0.5, Forget: ptr(0.2)}
	once := in.Clamp()
	twice := once.Clamp()
	assert.Equal(t, once, twice)
}

func TestParameterSet_ClampDoesNotAliasForget(t *testing.T) {
	f := 0.02
	in := ParameterSet{Forget: &f}
	out := in.Clamp()
	f = 0.04
	require.NotNil(t, out.Forget)
	assert.InDelta(t, 0.02, *out.Forget, 1e-12)
}

func TestParameterSet_Decays(t *testing.T) {
	assert.False(t, ParameterSet{}.Decays())
	assert.False(t, ParameterSet{Forget: ptr(0)}.Decays())
	assert.True(t, ParameterSet{Forget: ptr(0.01)}.Decays())

	assert.Equal(t, 0.0, ParameterSet{}.ForgetRate())
	assert.Equal(t, 0.01, ParameterSet{Forget: ptr(0.01)}.ForgetRate())
}

func TestDefaultParameters(t *testing.T) {
	p := DefaultParameters()
	assert.Equal(t, 0.20, p.PInit)
	assert.Equal(t, 0.10, p.PTransit)
	assert.Equal(t, 0.10, p.Slip)
	assert.Equal(t, 0.18, p.Guess)
	require.NotNil(t, p.Forget)
	assert.Equal(t, 0.01, *p.Forget)
	assert.Equal(t, p, p.Clamp())
}

func TestParameterModel(t *testing.T) {
	model := NewParameterModel(DefaultParameters())

	t.Run("defaults are a copy", func(t *testing.T) {
		a := model.Defaults()
		*a.Forget = 0.04
		b := model.Defaults()
		assert.Equal(t, 0.01, *b.Forget)
	})

	t.Run("nil tuned resolves to defaults", func(t *testing.T) {
		assert.Equal(t, model.Defaults(), model.Resolve(nil))
	})

	t.Run("tuned set is clamped", func(t *testing.T) {
		got := model.Resolve(&ParameterSet{PInit: 0.9, PTransit: 0.1, Slip: 0.1, Guess: 0.2})
		assert.Equal(t, MaxPInit, got.PInit)
		assert.Nil(t, got.Forget)
	})

	t.Run("construction clamps defaults", func(t *testing.T) {
		m := NewParameterModel(ParameterSet{PInit: 2})
		assert.Equal(t, MaxPInit, m.Defaults().PInit)
	})
}

func TestClampProbability(t *testing.T) {
	assert.Equal(t, 0.0, ClampProbability(-0.5))
	assert.Equal(t, 1.0, ClampProbability(1.5))
	assert.Equal(t, 0.3, ClampProbability(0.3))
	assert.Equal(t, 0.0, ClampProbability(math.NaN()))
}

func TestNewMasteryState(t *testing.T) {
	key := TrackKey{LearnerID: uuid.New(), Kind: SubjectSkill, SubjectID: "fractions"}
	s := NewMasteryState(key, DefaultParameters())

	assert.Equal(t, 0.20, s.PKnow)
	assert.False(t, s.Observed())
	assert.Equal(t, key, s.Key())
	assert.Zero(t, s.Attempts)
}

func TestTrackKey_Less(t *testing.T) {
	learner := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	other := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	a := TrackKey{LearnerID: learner, Kind: SubjectItem, SubjectID: "z"}
	b := TrackKey{LearnerID: learner, Kind: SubjectSkill, SubjectID: "a"}
	c := TrackKey{LearnerID: learner, Kind: SubjectSkill, SubjectID: "b"}
	d := TrackKey{LearnerID: other, Kind: SubjectItem, SubjectID: "a"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.True(t, c.Less(d))
	assert.False(t, c.Less(b))
	assert.False(t, a.Less(a))
}

func TestValidSubjectKind(t *testing.T) {
	assert.True(t, ValidSubjectKind("skill"))
	assert.True(t, ValidSubjectKind("item"))
	assert.False(t, ValidSubjectKind("topic"))
	assert.False(t, ValidSubjectKind(""))
}

package domain

import "time"

// Parameter bounds. Values outside these ranges are clamped, never rejected.
const (
	MaxPInit    = 0.50
	MaxPTransit = 0.20
	MaxSlip     = 0.30
	MaxGuess    = 0.40
	MaxForget   = 0.05

	// GuessSlipMargin keeps guess strictly below 1 - slip so a correct answer
	// always carries evidence of knowing.
	GuessSlipMargin = 0.05

	// guessEpsilon is how far below the bound guess is pushed when the
	// margin is violated.
	guessEpsilon = 1e-6
)

// ParameterSet holds the tunable probabilities of one skill.
// Forget is nil when the skill does not decay.
type ParameterSet struct {
	PInit    float64  `json:"p_init"`
	PTransit float64  `json:"p_transit"`
	Slip     float64  `json:"slip"`
	Guess    float64  `json:"guess"`
	Forget   *float64 `json:"forget"`
}

// DefaultParameters returns the built-in parameter set used for skills and
// items with no tuned parameters.
func DefaultParameters() ParameterSet {
	forget := 0.01
	return ParameterSet{
		PInit:    0.20,
		PTransit: 0.10,
		Slip:     0.10,
		Guess:    0.18,
		Forget:   &forget,
	}
}

// Clamp returns a copy of p with every field inside its bounds. It is total
// and idempotent.
func (p ParameterSet) Clamp() ParameterSet {
	out := ParameterSet{
		PInit:    clampRange(p.PInit, 0, MaxPInit),
		PTransit: clampRange(p.PTransit, 0, MaxPTransit),
		Slip:     clampRange(p.Slip, 0, MaxSlip),
		Guess:    clampRange(p.Guess, 0, MaxGuess),
	}

	if limit := 1 - out.Slip - GuessSlipMargin; out.Guess >= limit {
		out.Guess = limit - guessEpsilon
	}

	if p.Forget != nil {
		f := clampRange(*p.Forget, 0, MaxForget)
		out.Forget = &f
	}
	return out
}

// Decays reports whether a forgetting rate is configured.
func (p ParameterSet) Decays() bool {
	return p.Forget != nil && *p.Forget > 0
}

// ForgetRate returns the forgetting rate, or 0 when decay is disabled.
func (p ParameterSet) ForgetRate() float64 {
	if p.Forget == nil {
		return 0
	}
	return *p.Forget
}

// ParameterModel resolves the parameter set that applies to a subject. The
// defaults are fixed at construction.
type ParameterModel struct {
	defaults ParameterSet
}

// NewParameterModel builds a model around the given defaults, clamped.
func NewParameterModel(defaults ParameterSet) ParameterModel {
	return ParameterModel{defaults: defaults.Clamp()}
}

// Defaults returns a copy of the model's default parameter set.
func (m ParameterModel) Defaults() ParameterSet {
	return m.defaults.copy()
}

// Resolve returns the clamped tuned set when present, otherwise the defaults.
func (m ParameterModel) Resolve(tuned *ParameterSet) ParameterSet {
	if tuned == nil {
		return m.Defaults()
	}
	return tuned.Clamp()
}

func (p ParameterSet) copy() ParameterSet {
	out := p
	if p.Forget != nil {
		f := *p.Forget
		out.Forget = &f
	}
	return out
}

// SkillParameters is the persisted, per-skill tuning.
type SkillParameters struct {
	SkillID string       `json:"skill_id"`
	Params  ParameterSet `json:"params"`
	// IsDefault is set when no tuned parameters exist and the defaults were substituted.
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func clampRange(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampProbability bounds p to [0, 1].
func ClampProbability(p float64) float64 {
	return clampRange(p, 0, 1)
}

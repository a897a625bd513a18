package service

import (
	"math"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
)

const (
	// MaxForgetRate is a numeric-safety ceiling on the daily forgetting rate,
	// applied even when callers bypass ParameterSet.Clamp.
	MaxForgetRate = 0.2

	day = 24 * time.Hour
)

// Project decays pKnow across elapsedDays whole days of no practice:
// pKnow * (1 - forget)^elapsedDays. A nil or non-positive forget, or a
// non-positive gap, leaves pKnow unchanged.
func Project(pKnow float64, elapsedDays int, forget *float64) float64 {
	pKnow = domain.ClampProbability(pKnow)
	if forget == nil || *forget <= 0 || elapsedDays <= 0 {
		return pKnow
	}

	f := math.Min(*forget, MaxForgetRate)
	return domain.ClampProbability(pKnow * math.Pow(1-f, float64(elapsedDays)))
}

// ElapsedDays returns the number of whole days from from to to. Partial days
// are truncated, so 1.9 days counts as 1. The result is negative when to is
// before from.
func ElapsedDays(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

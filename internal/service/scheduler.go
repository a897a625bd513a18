package service

import (
	"errors"
	"math"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
)

const (
	// DueThreshold is the recall level below which a subject is due for review.
	DueThreshold = 0.72
	// MasteredThreshold is the recall level used for mastery reporting.
	MasteredThreshold = 0.95

	// MaxIntervalDays caps decay-based intervals for very small forgetting rates.
	MaxIntervalDays = 36500
)

var ErrInvalidThreshold = errors.New("threshold must be in (0, 1)")

// ReviewSchedule is when a subject should next be reviewed.
type ReviewSchedule struct {
	NextReviewAt time.Time `json:"next_review_at"`
	IntervalDays int       `json:"interval_days"`
}

// ValidThreshold reports whether threshold can be used for scheduling.
func ValidThreshold(threshold float64) bool {
	return threshold > 0 && threshold < 1
}

// NextReview returns the first whole day, counted from now, at which the
// projected recall of a subject at pKnow is expected to fall to threshold.
//
// Without a forgetting rate a fixed ladder keyed on pKnow is used. With one,
// a subject already at or below threshold is due now, subject to the band's
// minimum-day guard; otherwise pKnow*(1-forget)^d = threshold is solved for d.
func NextReview(pKnow float64, params domain.ParameterSet, threshold float64, now time.Time) ReviewSchedule {
	days := intervalDays(domain.ClampProbability(pKnow), params, threshold)
	return ReviewSchedule{
		NextReviewAt: now.AddDate(0, 0, days),
		IntervalDays: days,
	}
}

func intervalDays(pKnow float64, params domain.ParameterSet, threshold float64) int {
	if !params.Decays() {
		return domain.LadderDays(pKnow)
	}
	if pKnow <= 0 {
		return 0
	}

	guard := domain.MinimumDays(pKnow)
	// pKnow == threshold lands here rather than in the solve, so the
	// boundary never depends on ln(1) rounding.
	if pKnow <= threshold {
		return guard
	}

	if threshold <= 0 {
		return MaxIntervalDays
	}

	f := math.Min(params.ForgetRate(), MaxForgetRate)
	// Log1p keeps rates below float64 epsilon distinguishable from 1-f == 1.
	perDay := math.Log1p(-f)
	if perDay == 0 {
		return MaxIntervalDays
	}
	solved := math.Floor(math.Log(threshold/pKnow) / perDay)
	if solved > MaxIntervalDays {
		return MaxIntervalDays
	}
	d := int(solved)
	if d < guard {
		d = guard
	}
	return d
}

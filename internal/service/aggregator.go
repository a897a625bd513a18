package service

import (
	"sort"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
)

// SubjectState is one subject's current state and the parameters that govern it.
type SubjectState struct {
	State  domain.MasteryState
	Params domain.ParameterSet
}

// Due schedules one subject. The schedule is anchored at the state's last
// update, or at now if it has never been observed.
func Due(s SubjectState, threshold float64, now time.Time) domain.DueResult {
	anchor := now
	if s.State.LastUpdatedAt != nil {
		anchor = *s.State.LastUpdatedAt
	}

	sched := NextReview(s.State.PKnow, s.Params, threshold, anchor)
	return domain.DueResult{
		Kind:         s.State.Kind,
		SubjectID:    s.State.SubjectID,
		PKnow:        s.State.PKnow,
		Band:         domain.ComputeBand(s.State.PKnow),
		NextReviewAt: sched.NextReviewAt,
		IntervalDays: sched.IntervalDays,
	}
}

// Aggregate schedules every subject, orders them most overdue first and
// splits them into those due at now and those not yet due. It does not
// modify its input.
func Aggregate(subjects []SubjectState, threshold float64, now time.Time) domain.ReviewPlan {
	results := make([]domain.DueResult, 0, len(subjects))
	for _, s := range subjects {
		results = append(results, Due(s, threshold, now))
	}

	sort.SliceStable(results, func(i, j int) bool {
		di, dj := results[i].NextReviewAt.Sub(now), results[j].NextReviewAt.Sub(now)
		if di != dj {
			return di < dj
		}
		if results[i].Kind != results[j].Kind {
			return results[i].Kind < results[j].Kind
		}
		return results[i].SubjectID < results[j].SubjectID
	})

	plan := domain.ReviewPlan{
		Threshold: threshold,
		Due:       []domain.DueResult{},
		NotYetDue: []domain.DueResult{},
	}
	for _, r := range results {
		if r.NextReviewAt.After(now) {
			plan.NotYetDue = append(plan.NotYetDue, r)
		} else {
			plan.Due = append(plan.Due, r)
		}
	}
	return plan
}

// CountRetained returns how many subjects currently sit at or above
// threshold and are not yet due for review against it. The minimum-day guard
// alone never makes a subject count as retained.
func CountRetained(subjects []SubjectState, threshold float64, now time.Time) int {
	n := 0
	for _, r := range Aggregate(subjects, threshold, now).NotYetDue {
		if r.PKnow >= threshold {
			n++
		}
	}
	return n
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type SubjectKind string

const (
	SubjectSkill SubjectKind = "skill"
	SubjectItem  SubjectKind = "item"
)

func ValidSubjectKind(k string) bool {
	switch SubjectKind(k) {
	case SubjectSkill, SubjectItem:
		return true
	}
	return false
}

// TrackKey identifies one independently updated mastery state: a learner
// paired with either a skill or an item.
type TrackKey struct {
	LearnerID uuid.UUID   `json:"learner_id"`
	Kind      SubjectKind `json:"kind"`
	SubjectID string      `json:"subject_id"`
}

func (k TrackKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.LearnerID, k.Kind, k.SubjectID)
}

// Less orders keys by learner, kind, then subject.
func (k TrackKey) Less(o TrackKey) bool {
	if k.LearnerID != o.LearnerID {
		return k.LearnerID.String() < o.LearnerID.String()
	}
	if k.Kind != o.Kind {
		return k.Kind < o.Kind
	}
	return k.SubjectID < o.SubjectID
}

// MasteryState is the hidden-state estimate for one track. LastUpdatedAt is
// nil until the first observation has been incorporated.
type MasteryState struct {
	LearnerID     uuid.UUID   `json:"learner_id"`
	Kind          SubjectKind `json:"kind"`
	SubjectID     string      `json:"subject_id"`
	PKnow         float64     `json:"p_know"`
	LastUpdatedAt *time.Time  `json:"last_updated_at,omitempty"`
	Attempts      int         `json:"attempts"`
	CorrectCount  int         `json:"correct_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// NewMasteryState returns a fresh state at pInit for key.
func NewMasteryState(key TrackKey, params ParameterSet) MasteryState {
	return MasteryState{
		LearnerID: key.LearnerID,
		Kind:      key.Kind,
		SubjectID: key.SubjectID,
		PKnow:     params.PInit,
	}
}

func (s MasteryState) Key() TrackKey {
	return TrackKey{LearnerID: s.LearnerID, Kind: s.Kind, SubjectID: s.SubjectID}
}

// Observed reports whether any observation has been incorporated.
func (s MasteryState) Observed() bool {
	return s.LastUpdatedAt != nil
}

// Observation is a single right/wrong outcome for one subject.
type Observation struct {
	SubjectID  string    `json:"subject_id"`
	Correct    bool      `json:"correct"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Answer is a learner's response to an item, as submitted by a study session.
type Answer struct {
	ItemID     string    `json:"item_id"`
	Correct    bool      `json:"correct"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ObservationRecord is the persisted history entry for one observation
// applied to one track.
type ObservationRecord struct {
	ID          uuid.UUID   `json:"id"`
	// Seq is assigned on insert and orders records sharing an OccurredAt.
	Seq         int64       `json:"seq"`
	LearnerID   uuid.UUID   `json:"learner_id"`
	Kind        SubjectKind `json:"kind"`
	SubjectID   string      `json:"subject_id"`
	Correct     bool        `json:"correct"`
	OccurredAt  time.Time   `json:"occurred_at"`
	PKnowBefore float64     `json:"p_know_before"`
	PKnowAfter  float64     `json:"p_know_after"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (r ObservationRecord) Observation() Observation {
	return Observation{SubjectID: r.SubjectID, Correct: r.Correct, OccurredAt: r.OccurredAt}
}

// DueResult is the scheduling outcome for one subject.
type DueResult struct {
	Kind         SubjectKind `json:"kind"`
	SubjectID    string      `json:"subject_id"`
	PKnow        float64     `json:"p_know"`
	Band         MasteryBand `json:"band"`
	NextReviewAt time.Time   `json:"next_review_at"`
	IntervalDays int         `json:"interval_days"`
}

// ReviewPlan partitions due results, each slice ordered most overdue first.
type ReviewPlan struct {
	Threshold float64     `json:"threshold"`
	Due       []DueResult `json:"due"`
	NotYetDue []DueResult `json:"not_yet_due"`
}

// ItemSkillMapping declares which skills an item exercises. When Skills is
// empty the item inherits DefaultSkillID, if any.
type ItemSkillMapping struct {
	ItemID         string    `json:"item_id"`
	Skills         []string  `json:"skills"`
	DefaultSkillID *string   `json:"default_skill_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CalibrationStats summarises a skill's observation history for tuning.
type CalibrationStats struct {
	SkillID      string
	Total        int
	HighAttempts int // attempts where the prior was at or above the high cut
	HighWrong    int
	LowAttempts  int // attempts where the prior was at or below the low cut
	LowCorrect   int
}

// ProgressSnapshot is a point-in-time summary of a learner's review load.
type ProgressSnapshot struct {
	ID             uuid.UUID `json:"id"`
	LearnerID      uuid.UUID `json:"learner_id"`
	TrackedSkills  int       `json:"tracked_skills"`
	TrackedItems   int       `json:"tracked_items"`
	DueSkills      int       `json:"due_skills"`
	DueItems       int       `json:"due_items"`
	MasteredSkills int       `json:"mastered_skills"`
	MasteredItems  int       `json:"mastered_items"`
	TakenAt        time.Time `json:"taken_at"`
}

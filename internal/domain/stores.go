package domain

import (
	"context"

	"github.com/google/uuid"
)

// MasteryStore persists one MasteryState per track.
type MasteryStore interface {
	Get(ctx context.Context, key TrackKey) (*MasteryState, error)
	Upsert(ctx context.Context, s *MasteryState) error
	// SaveTrack upserts the state and appends its observation records
	// atomically: either both are written or neither is.
	SaveTrack(ctx context.Context, s *MasteryState, records []ObservationRecord) error
	ListByLearner(ctx context.Context, learnerID uuid.UUID, kind SubjectKind) ([]MasteryState, error)
	ListDistinctLearnerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// ParameterStore persists tuned parameters keyed by skill.
type ParameterStore interface {
	Upsert(ctx context.Context, p *SkillParameters) error
	GetBySkillID(ctx context.Context, skillID string) (*SkillParameters, error)
	// GetBySkillIDs returns only the skills that have tuned parameters.
	GetBySkillIDs(ctx context.Context, skillIDs []string) (map[string]ParameterSet, error)
}

// ObservationStore is the append-only observation history.
type ObservationStore interface {
	CreateBatch(ctx context.Context, records []ObservationRecord) error
	// ListByTrack returns records ordered by OccurredAt, then Seq.
	// A limit <= 0 returns the full history.
	ListByTrack(ctx context.Context, key TrackKey, limit int) ([]ObservationRecord, error)
	ListDistinctSkillIDs(ctx context.Context) ([]string, error)
	GetCalibrationStats(ctx context.Context, skillID string, highPKnow, lowPKnow float64) (*CalibrationStats, error)
}

// SkillMapStore resolves which skills an item exercises.
type SkillMapStore interface {
	SetMapping(ctx context.Context, m *ItemSkillMapping) error
	GetMapping(ctx context.Context, itemID string) (*ItemSkillMapping, error)
	// ResolveSkills returns the explicit skills of an item, or its inherited
	// default skill, or nothing.
	ResolveSkills(ctx context.Context, itemID string) ([]string, error)
}

// SnapshotStore persists periodic progress summaries.
type SnapshotStore interface {
	Create(ctx context.Context, s *ProgressSnapshot) error
	ListByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]ProgressSnapshot, error)
}

package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MasteryStore struct {
	db *pgxpool.Pool
}

func NewMasteryStore(db *pgxpool.Pool) *MasteryStore {
	return &MasteryStore{db: db}
}

func (s *MasteryStore) Get(ctx context.Context, key domain.TrackKey) (*domain.MasteryState, error) {
	m := &domain.MasteryState{}
	err := s.db.QueryRow(ctx,
		`SELECT learner_id, kind, subject_id, p_know, last_updated_at, attempts, correct_count, created_at, updated_at
		 FROM mastery_states WHERE learner_id = $1 AND kind = $2 AND subject_id = $3`,
		key.LearnerID, key.Kind, key.SubjectID,
	).Scan(&m.LearnerID, &m.Kind, &m.SubjectID, &m.PKnow, &m.LastUpdatedAt, &m.Attempts, &m.CorrectCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MasteryStore) Upsert(ctx context.Context, m *domain.MasteryState) error {
	return upsertState(ctx, s.db, m)
}

// SaveTrack writes the state and the records that produced it in one
// transaction.
func (s *MasteryStore) SaveTrack(ctx context.Context, m *domain.MasteryState, records []domain.ObservationRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := upsertState(ctx, tx, m); err != nil {
		return err
	}
	if err := insertObservations(ctx, tx, records); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func upsertState(ctx context.Context, q querier, m *domain.MasteryState) error {
	return q.QueryRow(ctx,
		`INSERT INTO mastery_states (learner_id, kind, subject_id, p_know, last_updated_at, attempts, correct_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (learner_id, kind, subject_id)
		 DO UPDATE SET p_know = EXCLUDED.p_know,
		               last_updated_at = EXCLUDED.last_updated_at,
		               attempts = EXCLUDED.attempts,
		               correct_count = EXCLUDED.correct_count,
		               updated_at = NOW()
		 RETURNING created_at, updated_at`,
		m.LearnerID, m.Kind, m.SubjectID, m.PKnow, m.LastUpdatedAt, m.Attempts, m.CorrectCount,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (s *MasteryStore) ListByLearner(ctx context.Context, learnerID uuid.UUID, kind domain.SubjectKind) ([]domain.MasteryState, error) {
	rows, err := s.db.Query(ctx,
		`SELECT learner_id, kind, subject_id, p_know, last_updated_at, attempts, correct_count, created_at, updated_at
		 FROM mastery_states WHERE learner_id = $1 AND kind = $2
		 ORDER BY subject_id`,
		learnerID, kind,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.MasteryState
	for rows.Next() {
		var m domain.MasteryState
		if err := rows.Scan(&m.LearnerID, &m.Kind, &m.SubjectID, &m.PKnow, &m.LastUpdatedAt, &m.Attempts, &m.CorrectCount, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		states = append(states, m)
	}
	return states, rows.Err()
}

func (s *MasteryStore) ListDistinctLearnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT learner_id FROM mastery_states`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

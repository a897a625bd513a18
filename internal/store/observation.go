package store

import (
	"context"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ObservationStore struct {
	db *pgxpool.Pool
}

func NewObservationStore(db *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{db: db}
}

// CreateBatch inserts all records in one round trip. IDs are assigned here
// when missing; Seq follows slice order.
func (s *ObservationStore) CreateBatch(ctx context.Context, records []domain.ObservationRecord) error {
	return insertObservations(ctx, s.db, records)
}

func insertObservations(ctx context.Context, q querier, records []domain.ObservationRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range records {
		r := &records[i]
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		batch.Queue(
			`INSERT INTO observations (id, learner_id, kind, subject_id, correct, occurred_at, p_know_before, p_know_after)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING seq, created_at`,
			r.ID, r.LearnerID, r.Kind, r.SubjectID, r.Correct, r.OccurredAt, r.PKnowBefore, r.PKnowAfter,
		).QueryRow(func(row pgx.Row) error {
			return row.Scan(&r.Seq, &r.CreatedAt)
		})
	}
	return q.SendBatch(ctx, batch).Close()
}

func (s *ObservationStore) ListByTrack(ctx context.Context, key domain.TrackKey, limit int) ([]domain.ObservationRecord, error) {
	query := `SELECT id, seq, learner_id, kind, subject_id, correct, occurred_at, p_know_before, p_know_after, created_at
		 FROM observations WHERE learner_id = $1 AND kind = $2 AND subject_id = $3
		 ORDER BY occurred_at, seq`
	args := []any{key.LearnerID, key.Kind, key.SubjectID}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ObservationRecord
	for rows.Next() {
		var r domain.ObservationRecord
		if err := rows.Scan(&r.ID, &r.Seq, &r.LearnerID, &r.Kind, &r.SubjectID, &r.Correct, &r.OccurredAt, &r.PKnowBefore, &r.PKnowAfter, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *ObservationStore) ListDistinctSkillIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT subject_id FROM observations WHERE kind = $1 ORDER BY subject_id`,
		domain.SubjectSkill,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *ObservationStore) GetCalibrationStats(ctx context.Context, skillID string, highPKnow, lowPKnow float64) (*domain.CalibrationStats, error) {
	st := &domain.CalibrationStats{SkillID: skillID}
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE p_know_before >= $3),
		        COUNT(*) FILTER (WHERE p_know_before >= $3 AND NOT correct),
		        COUNT(*) FILTER (WHERE p_know_before <= $4),
		        COUNT(*) FILTER (WHERE p_know_before <= $4 AND correct)
		 FROM observations WHERE kind = $1 AND subject_id = $2`,
		domain.SubjectSkill, skillID, highPKnow, lowPKnow,
	).Scan(&st.Total, &st.HighAttempts, &st.HighWrong, &st.LowAttempts, &st.LowCorrect)
	if err != nil {
		return nil, err
	}
	return st, nil
}

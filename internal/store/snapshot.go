package store

import (
	"context"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SnapshotStore struct {
	db *pgxpool.Pool
}

func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) Create(ctx context.Context, p *domain.ProgressSnapshot) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO progress_snapshots
		   (id, learner_id, tracked_skills, tracked_items, due_skills, due_items, mastered_skills, mastered_items, taken_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.LearnerID, p.TrackedSkills, p.TrackedItems, p.DueSkills, p.DueItems, p.MasteredSkills, p.MasteredItems, p.TakenAt,
	)
	return err
}

func (s *SnapshotStore) ListByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]domain.ProgressSnapshot, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, learner_id, tracked_skills, tracked_items, due_skills, due_items, mastered_skills, mastered_items, taken_at
		 FROM progress_snapshots WHERE learner_id = $1
		 ORDER BY taken_at DESC
		 LIMIT $2`,
		learnerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []domain.ProgressSnapshot
	for rows.Next() {
		var p domain.ProgressSnapshot
		if err := rows.Scan(&p.ID, &p.LearnerID, &p.TrackedSkills, &p.TrackedItems, &p.DueSkills, &p.DueItems, &p.MasteredSkills, &p.MasteredItems, &p.TakenAt); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, p)
	}
	return snapshots, rows.Err()
}

package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ParameterStore struct {
	db *pgxpool.Pool
}

func NewParameterStore(db *pgxpool.Pool) *ParameterStore {
	return &ParameterStore{db: db}
}

func (s *ParameterStore) Upsert(ctx context.Context, p *domain.SkillParameters) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO skill_parameters (skill_id, p_init, p_transit, slip, guess, forget)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (skill_id)
		 DO UPDATE SET p_init = EXCLUDED.p_init,
		               p_transit = EXCLUDED.p_transit,
		               slip = EXCLUDED.slip,
		               guess = EXCLUDED.guess,
		               forget = EXCLUDED.forget,
		               updated_at = NOW()
		 RETURNING created_at, updated_at`,
		p.SkillID, p.Params.PInit, p.Params.PTransit, p.Params.Slip, p.Params.Guess, p.Params.Forget,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (s *ParameterStore) GetBySkillID(ctx context.Context, skillID string) (*domain.SkillParameters, error) {
	p := &domain.SkillParameters{}
	err := s.db.QueryRow(ctx,
		`SELECT skill_id, p_init, p_transit, slip, guess, forget, created_at, updated_at
		 FROM skill_parameters WHERE skill_id = $1`,
		skillID,
	).Scan(&p.SkillID, &p.Params.PInit, &p.Params.PTransit, &p.Params.Slip, &p.Params.Guess, &p.Params.Forget, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ParameterStore) GetBySkillIDs(ctx context.Context, skillIDs []string) (map[string]domain.ParameterSet, error) {
	out := make(map[string]domain.ParameterSet, len(skillIDs))
	if len(skillIDs) == 0 {
		return out, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT skill_id, p_init, p_transit, slip, guess, forget
		 FROM skill_parameters WHERE skill_id = ANY($1)`,
		skillIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var p domain.ParameterSet
		if err := rows.Scan(&id, &p.PInit, &p.PTransit, &p.Slip, &p.Guess, &p.Forget); err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, rows.Err()
}

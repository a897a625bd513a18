package store

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SkillMapStore struct {
	db *pgxpool.Pool
}

func NewSkillMapStore(db *pgxpool.Pool) *SkillMapStore {
	return &SkillMapStore{db: db}
}

// SetMapping replaces the explicit skills and default skill of an item.
func (s *SkillMapStore) SetMapping(ctx context.Context, m *domain.ItemSkillMapping) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO items (item_id, default_skill_id)
		 VALUES ($1, $2)
		 ON CONFLICT (item_id)
		 DO UPDATE SET default_skill_id = EXCLUDED.default_skill_id,
		               updated_at = NOW()
		 RETURNING updated_at`,
		m.ItemID, m.DefaultSkillID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM item_skills WHERE item_id = $1`, m.ItemID); err != nil {
		return err
	}
	for _, skillID := range m.Skills {
		if _, err := tx.Exec(ctx,
			`INSERT INTO item_skills (item_id, skill_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			m.ItemID, skillID,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *SkillMapStore) GetMapping(ctx context.Context, itemID string) (*domain.ItemSkillMapping, error) {
	m := &domain.ItemSkillMapping{ItemID: itemID, Skills: []string{}}
	err := s.db.QueryRow(ctx,
		`SELECT default_skill_id, updated_at FROM items WHERE item_id = $1`,
		itemID,
	).Scan(&m.DefaultSkillID, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	skills, err := s.explicitSkills(ctx, itemID)
	if err != nil {
		return nil, err
	}
	m.Skills = append(m.Skills, skills...)
	return m, nil
}

func (s *SkillMapStore) ResolveSkills(ctx context.Context, itemID string) ([]string, error) {
	skills, err := s.explicitSkills(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if len(skills) > 0 {
		return skills, nil
	}

	var def *string
	err = s.db.QueryRow(ctx,
		`SELECT default_skill_id FROM items WHERE item_id = $1`,
		itemID,
	).Scan(&def)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if def == nil || *def == "" {
		return nil, nil
	}
	return []string{*def}, nil
}

func (s *SkillMapStore) explicitSkills(ctx context.Context, itemID string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT skill_id FROM item_skills WHERE item_id = $1 ORDER BY skill_id`,
		itemID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		skills = append(skills, id)
	}
	return skills, rows.Err()
}

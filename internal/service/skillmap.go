package service

import (
	"context"
	"errors"
	"sort"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/store"
)

var ErrItemMappingNotFound = errors.New("item has no skill mapping")

type SkillMapService struct {
	store domain.SkillMapStore
}

func NewSkillMapService(sm domain.SkillMapStore) *SkillMapService {
	return &SkillMapService{store: sm}
}

// SetItemSkills replaces an item's explicit skills and inherited default.
// Skill ids are de-duplicated; empty ids are dropped.
func (s *SkillMapService) SetItemSkills(ctx context.Context, itemID string, skills []string, defaultSkillID *string) (*domain.ItemSkillMapping, error) {
	if itemID == "" {
		return nil, ErrItemIDMissing
	}

	seen := make(map[string]struct{}, len(skills))
	cleaned := make([]string, 0, len(skills))
	for _, id := range skills {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	sort.Strings(cleaned)

	if defaultSkillID != nil && *defaultSkillID == "" {
		defaultSkillID = nil
	}

	m := &domain.ItemSkillMapping{
		ItemID:         itemID,
		Skills:         cleaned,
		DefaultSkillID: defaultSkillID,
	}
	if err := s.store.SetMapping(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SkillMapService) GetItemSkills(ctx context.Context, itemID string) (*domain.ItemSkillMapping, error) {
	if itemID == "" {
		return nil, ErrItemIDMissing
	}
	m, err := s.store.GetMapping(ctx, itemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrItemMappingNotFound
		}
		return nil, err
	}
	return m, nil
}

// ResolveSkills returns the skills an answer to itemID counts towards.
func (s *SkillMapService) ResolveSkills(ctx context.Context, itemID string) ([]string, error) {
	if itemID == "" {
		return nil, ErrItemIDMissing
	}
	skills, err := s.store.ResolveSkills(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []string{}
	}
	return skills, nil
}

package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/store"
	"go.uber.org/zap"
)

var ErrSkillIDMissing = errors.New("skill_id is required")

type ParameterService struct {
	store  domain.ParameterStore
	model  domain.ParameterModel
	logger *zap.Logger
}

func NewParameterService(ps domain.ParameterStore, model domain.ParameterModel, logger *zap.Logger) *ParameterService {
	return &ParameterService{store: ps, model: model, logger: logger}
}

// Upsert clamps and stores tuned parameters for a skill. Out-of-range values
// are clamped, never rejected.
func (s *ParameterService) Upsert(ctx context.Context, skillID string, params domain.ParameterSet) (*domain.SkillParameters, error) {
	if skillID == "" {
		return nil, ErrSkillIDMissing
	}

	sp := &domain.SkillParameters{
		SkillID: skillID,
		Params:  params.Clamp(),
	}
	if err := s.store.Upsert(ctx, sp); err != nil {
		return nil, err
	}

	s.logger.Info("skill parameters updated",
		zap.String("skill_id", skillID),
		zap.Float64("p_init", sp.Params.PInit),
		zap.Float64("p_transit", sp.Params.PTransit),
		zap.Float64("slip", sp.Params.Slip),
		zap.Float64("guess", sp.Params.Guess),
		zap.Float64("forget", sp.Params.ForgetRate()))

	return sp, nil
}

// Get returns the parameters that apply to a skill. When none are stored the
// model defaults are returned with IsDefault set.
func (s *ParameterService) Get(ctx context.Context, skillID string) (*domain.SkillParameters, error) {
	if skillID == "" {
		return nil, ErrSkillIDMissing
	}

	sp, err := s.store.GetBySkillID(ctx, skillID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &domain.SkillParameters{
				SkillID:   skillID,
				Params:    s.model.Defaults(),
				IsDefault: true,
			}, nil
		}
		return nil, err
	}
	sp.Params = s.model.Resolve(&sp.Params)
	return sp, nil
}

package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/store"
	"go.uber.org/zap"
)

const (
	// Priors at or above this cut are treated as "known" when estimating slip.
	slipPriorCut = 0.95
	// Priors at or below this cut are treated as "unknown" when estimating guess.
	guessPriorCut = 0.20

	// Each run moves a parameter at most this far toward its estimate.
	tuneStep = 0.02

	// Minimum observations per skill before the tuner acts.
	minObservations = 50
	// Minimum observations within a cut before that estimate is trusted.
	minBucketObservations = 20

	defaultTunerInterval = 6 * time.Hour
)

type TuneResult struct {
	SkillsExamined int `json:"skills_examined"`
	SkillsAdjusted int `json:"skills_adjusted"`
}

// ParameterTuner periodically nudges each skill's slip and guess toward the
// rates observed in its history.
type ParameterTuner struct {
	observationStore domain.ObservationStore
	parameterStore   domain.ParameterStore
	model            domain.ParameterModel
	logger           *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewParameterTuner(ob domain.ObservationStore, ps domain.ParameterStore, model domain.ParameterModel, logger *zap.Logger) *ParameterTuner {
	return &ParameterTuner{
		observationStore: ob,
		parameterStore:   ps,
		model:            model,
		logger:           logger,
		interval:         defaultTunerInterval,
		stopCh:           make(chan struct{}),
	}
}

func (s *ParameterTuner) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start runs the tuner on a periodic schedule in a background goroutine.
func (s *ParameterTuner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("parameter tuner started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				if _, err := s.RunAll(ctx); err != nil {
					s.logger.Error("parameter tuner run failed", zap.Error(err))
				}
				cancel()
			case <-s.stopCh:
				s.logger.Info("parameter tuner stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the tuner.
func (s *ParameterTuner) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunAll tunes every skill that has observation history.
func (s *ParameterTuner) RunAll(ctx context.Context) (*TuneResult, error) {
	skillIDs, err := s.observationStore.ListDistinctSkillIDs(ctx)
	if err != nil {
		return nil, err
	}

	result := &TuneResult{}
	for _, skillID := range skillIDs {
		result.SkillsExamined++
		adjusted, err := s.RunForSkill(ctx, skillID)
		if err != nil {
			s.logger.Warn("tuner failed for skill",
				zap.String("skill_id", skillID),
				zap.Error(err))
			continue
		}
		if adjusted {
			result.SkillsAdjusted++
		}
	}
	return result, nil
}

// RunForSkill adjusts one skill's slip and guess. It reports whether new
// parameters were stored.
func (s *ParameterTuner) RunForSkill(ctx context.Context, skillID string) (bool, error) {
	stats, err := s.observationStore.GetCalibrationStats(ctx, skillID, slipPriorCut, guessPriorCut)
	if err != nil {
		return false, err
	}
	if stats.Total < minObservations {
		return false, nil
	}

	current := s.model.Defaults()
	sp, err := s.parameterStore.GetBySkillID(ctx, skillID)
	switch {
	case err == nil:
		current = s.model.Resolve(&sp.Params)
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	next := current
	if stats.HighAttempts >= minBucketObservations {
		observed := float64(stats.HighWrong) / float64(stats.HighAttempts)
		next.Slip = stepToward(current.Slip, observed, tuneStep)
	}
	if stats.LowAttempts >= minBucketObservations {
		observed := float64(stats.LowCorrect) / float64(stats.LowAttempts)
		next.Guess = stepToward(current.Guess, observed, tuneStep)
	}
	next = next.Clamp()

	if next.Slip == current.Slip && next.Guess == current.Guess {
		return false, nil
	}

	s.logger.Info("tuner: adjusting skill parameters",
		zap.String("skill_id", skillID),
		zap.Int("observations", stats.Total),
		zap.Float64("old_slip", current.Slip),
		zap.Float64("new_slip", next.Slip),
		zap.Float64("old_guess", current.Guess),
		zap.Float64("new_guess", next.Guess))

	if err := s.parameterStore.Upsert(ctx, &domain.SkillParameters{SkillID: skillID, Params: next}); err != nil {
		return false, err
	}
	return true, nil
}

// stepToward moves current toward target by at most step.
func stepToward(current, target, step float64) float64 {
	delta := target - current
	if math.Abs(delta) <= step {
		return target
	}
	if delta > 0 {
		return current + step
	}
	return current - step
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSweepInterval = 1 * time.Hour

type SweepResult struct {
	LearnersSwept    int `json:"learners_swept"`
	SnapshotsWritten int `json:"snapshots_written"`
	DueSkills        int `json:"due_skills"`
	DueItems         int `json:"due_items"`
}

// ReviewSweepService periodically summarises every learner's review load
// into a progress snapshot.
type ReviewSweepService struct {
	mastery       *MasteryService
	masteryStore  domain.MasteryStore
	snapshotStore domain.SnapshotStore
	logger        *zap.Logger

	dueThreshold      float64
	masteredThreshold float64

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewReviewSweepService(mastery *MasteryService, ms domain.MasteryStore, ss domain.SnapshotStore, logger *zap.Logger) *ReviewSweepService {
	return &ReviewSweepService{
		mastery:           mastery,
		masteryStore:      ms,
		snapshotStore:     ss,
		logger:            logger,
		dueThreshold:      DueThreshold,
		masteredThreshold: MasteredThreshold,
		interval:          defaultSweepInterval,
		stopCh:            make(chan struct{}),
	}
}

func (s *ReviewSweepService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

func (s *ReviewSweepService) SetThresholds(due, mastered float64) {
	if ValidThreshold(due) {
		s.dueThreshold = due
	}
	if ValidThreshold(mastered) {
		s.masteredThreshold = mastered
	}
}

func (s *ReviewSweepService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("review sweep started", zap.Duration("interval", s.interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				s.RunSweep(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("review sweep stopped")
				return
			}
		}
	}()
}

func (s *ReviewSweepService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// RunSweep snapshots every learner that has at least one track.
func (s *ReviewSweepService) RunSweep(ctx context.Context) *SweepResult {
	total := &SweepResult{}

	learnerIDs, err := s.masteryStore.ListDistinctLearnerIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list learners for sweep", zap.Error(err))
		return total
	}

	for _, learnerID := range learnerIDs {
		snap, err := s.SweepLearner(ctx, learnerID)
		if err != nil {
			s.logger.Error("sweep failed for learner",
				zap.String("learner_id", learnerID.String()),
				zap.Error(err))
			continue
		}

		total.LearnersSwept++
		total.SnapshotsWritten++
		total.DueSkills += snap.DueSkills
		total.DueItems += snap.DueItems
	}

	if total.LearnersSwept > 0 {
		s.logger.Info("review sweep complete",
			zap.Int("learners", total.LearnersSwept),
			zap.Int("due_skills", total.DueSkills),
			zap.Int("due_items", total.DueItems))
	}
	return total
}

// SweepLearner computes and stores one learner's progress snapshot.
func (s *ReviewSweepService) SweepLearner(ctx context.Context, learnerID uuid.UUID) (*domain.ProgressSnapshot, error) {
	now := s.mastery.now()

	skills, err := s.mastery.loadSubjects(ctx, learnerID, domain.SubjectSkill)
	if err != nil {
		return nil, err
	}
	items, err := s.mastery.loadSubjects(ctx, learnerID, domain.SubjectItem)
	if err != nil {
		return nil, err
	}

	snap := &domain.ProgressSnapshot{
		LearnerID:      learnerID,
		TrackedSkills:  len(skills),
		TrackedItems:   len(items),
		DueSkills:      len(Aggregate(skills, s.dueThreshold, now).Due),
		DueItems:       len(Aggregate(items, s.dueThreshold, now).Due),
		MasteredSkills: CountRetained(skills, s.masteredThreshold, now),
		MasteredItems:  CountRetained(items, s.masteredThreshold, now),
		TakenAt:        now,
	}
	if err := s.snapshotStore.Create(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns a learner's most recent snapshots, newest first.
func (s *ReviewSweepService) ListSnapshots(ctx context.Context, learnerID uuid.UUID, limit int) ([]domain.ProgressSnapshot, error) {
	if learnerID == uuid.Nil {
		return nil, ErrLearnerIDMissing
	}
	snaps, err := s.snapshotStore.ListByLearner(ctx, learnerID, limit)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []domain.ProgressSnapshot{}
	}
	return snaps, nil
}

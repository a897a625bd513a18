package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/mastery/internal/domain"
	"github.com/Harshitk-cp/mastery/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func forgetPtr(f float64) *float64 { return &f }

func thresholdPtr(v float64) *float64 { return &v }

// mockMasteryStore implements domain.MasteryStore in memory. SaveTrack
// appends records to history when set; saveErr fails SaveTrack before
// anything is written.
type mockMasteryStore struct {
	mu      sync.Mutex
	states  map[domain.TrackKey]domain.MasteryState
	history *mockObservationStore
	saveErr error
}

func newMockMasteryStore() *mockMasteryStore {
	return &mockMasteryStore{states: make(map[domain.TrackKey]domain.MasteryState)}
}

func (m *mockMasteryStore) Get(ctx context.Context, key domain.TrackKey) (*domain.MasteryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (m *mockMasteryStore) Upsert(ctx context.Context, s *domain.MasteryState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if existing, ok := m.states[s.Key()]; ok {
		s.CreatedAt = existing.CreatedAt
	} else {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.states[s.Key()] = *s
	return nil
}

func (m *mockMasteryStore) SaveTrack(ctx context.Context, s *domain.MasteryState, records []domain.ObservationRecord) error {
	m.mu.Lock()
	err := m.saveErr
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.Upsert(ctx, s); err != nil {
		return err
	}
	if m.history != nil {
		return m.history.CreateBatch(ctx, records)
	}
	return nil
}

func (m *mockMasteryStore) ListByLearner(ctx context.Context, learnerID uuid.UUID, kind domain.SubjectKind) ([]domain.MasteryState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.MasteryState
	for k, s := range m.states {
		if k.LearnerID == learnerID && k.Kind == kind {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubjectID < result[j].SubjectID })
	return result, nil
}

func (m *mockMasteryStore) ListDistinctLearnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for k := range m.states {
		if !seen[k.LearnerID] {
			seen[k.LearnerID] = true
			ids = append(ids, k.LearnerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (m *mockMasteryStore) put(s domain.MasteryState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.Key()] = s
}

// mockParameterStore implements domain.ParameterStore in memory.
type mockParameterStore struct {
	mu     sync.Mutex
	params map[string]domain.SkillParameters
}

func newMockParameterStore() *mockParameterStore {
	return &mockParameterStore{params: make(map[string]domain.SkillParameters)}
}

func (m *mockParameterStore) Upsert(ctx context.Context, p *domain.SkillParameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = time.Now()
	m.params[p.SkillID] = *p
	return nil
}

func (m *mockParameterStore) GetBySkillID(ctx context.Context, skillID string) (*domain.SkillParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.params[skillID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *mockParameterStore) GetBySkillIDs(ctx context.Context, skillIDs []string) (map[string]domain.ParameterSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]domain.ParameterSet)
	for _, id := range skillIDs {
		if p, ok := m.params[id]; ok {
			result[id] = p.Params
		}
	}
	return result, nil
}

// mockObservationStore implements domain.ObservationStore in memory.
type mockObservationStore struct {
	mu      sync.Mutex
	records []domain.ObservationRecord
	stats   map[string]*domain.CalibrationStats
	nextSeq int64
}

func newMockObservationStore() *mockObservationStore {
	return &mockObservationStore{stats: make(map[string]*domain.CalibrationStats)}
}

func (m *mockObservationStore) CreateBatch(ctx context.Context, records []domain.ObservationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, r := range records {
		m.nextSeq++
		r.ID = uuid.New()
		r.Seq = m.nextSeq
		r.CreatedAt = now
		m.records = append(m.records, r)
	}
	return nil
}

func (m *mockObservationStore) ListByTrack(ctx context.Context, key domain.TrackKey, limit int) ([]domain.ObservationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Scan newest first, like a heap with no useful physical order, so only
	// the (OccurredAt, Seq) sort decides the result.
	var result []domain.ObservationRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		r := m.records[i]
		if r.LearnerID == key.LearnerID && r.Kind == key.Kind && r.SubjectID == key.SubjectID {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].Seq < result[j].Seq
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockObservationStore) ListDistinctSkillIDs(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, r := range m.records {
		if r.Kind == domain.SubjectSkill && !seen[r.SubjectID] {
			seen[r.SubjectID] = true
			ids = append(ids, r.SubjectID)
		}
	}
	for id := range m.stats {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockObservationStore) GetCalibrationStats(ctx context.Context, skillID string, highPKnow, lowPKnow float64) (*domain.CalibrationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[skillID]; ok {
		return s, nil
	}

	s := &domain.CalibrationStats{SkillID: skillID}
	for _, r := range m.records {
		if r.Kind != domain.SubjectSkill || r.SubjectID != skillID {
			continue
		}
		s.Total++
		if r.PKnowBefore >= highPKnow {
			s.HighAttempts++
			if !r.Correct {
				s.HighWrong++
			}
		}
		if r.PKnowBefore <= lowPKnow {
			s.LowAttempts++
			if r.Correct {
				s.LowCorrect++
			}
		}
	}
	return s, nil
}

func (m *mockObservationStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// mockSkillMapStore implements domain.SkillMapStore in memory.
type mockSkillMapStore struct {
	mu       sync.Mutex
	mappings map[string]domain.ItemSkillMapping
}

func newMockSkillMapStore() *mockSkillMapStore {
	return &mockSkillMapStore{mappings: make(map[string]domain.ItemSkillMapping)}
}

func (m *mockSkillMapStore) SetMapping(ctx context.Context, mapping *domain.ItemSkillMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping.UpdatedAt = time.Now()
	m.mappings[mapping.ItemID] = *mapping
	return nil
}

func (m *mockSkillMapStore) GetMapping(ctx context.Context, itemID string) (*domain.ItemSkillMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping, ok := m.mappings[itemID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &mapping, nil
}

func (m *mockSkillMapStore) ResolveSkills(ctx context.Context, itemID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping, ok := m.mappings[itemID]
	if !ok {
		return nil, nil
	}
	if len(mapping.Skills) > 0 {
		return append([]string(nil), mapping.Skills...), nil
	}
	if mapping.DefaultSkillID != nil {
		return []string{*mapping.DefaultSkillID}, nil
	}
	return nil, nil
}

// mockSnapshotStore implements domain.SnapshotStore in memory.
type mockSnapshotStore struct {
	mu        sync.Mutex
	snapshots []domain.ProgressSnapshot
}

func (m *mockSnapshotStore) Create(ctx context.Context, s *domain.ProgressSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *mockSnapshotStore) ListByLearner(ctx context.Context, learnerID uuid.UUID, limit int) ([]domain.ProgressSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []domain.ProgressSnapshot
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].LearnerID == learnerID {
			result = append(result, m.snapshots[i])
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// MockMasteryStore is a testify mock used to inject store failures.
type MockMasteryStore struct {
	mock.Mock
}

func (m *MockMasteryStore) Get(ctx context.Context, key domain.TrackKey) (*domain.MasteryState, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MasteryState), args.Error(1)
}

func (m *MockMasteryStore) Upsert(ctx context.Context, s *domain.MasteryState) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockMasteryStore) SaveTrack(ctx context.Context, s *domain.MasteryState, records []domain.ObservationRecord) error {
	args := m.Called(ctx, s, records)
	return args.Error(0)
}

func (m *MockMasteryStore) ListByLearner(ctx context.Context, learnerID uuid.UUID, kind domain.SubjectKind) ([]domain.MasteryState, error) {
	args := m.Called(ctx, learnerID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MasteryState), args.Error(1)
}

func (m *MockMasteryStore) ListDistinctLearnerIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockParameterStore is a testify mock used to inject store failures.
type MockParameterStore struct {
	mock.Mock
}

func (m *MockParameterStore) Upsert(ctx context.Context, p *domain.SkillParameters) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockParameterStore) GetBySkillID(ctx context.Context, skillID string) (*domain.SkillParameters, error) {
	args := m.Called(ctx, skillID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillParameters), args.Error(1)
}

func (m *MockParameterStore) GetBySkillIDs(ctx context.Context, skillIDs []string) (map[string]domain.ParameterSet, error) {
	args := m.Called(ctx, skillIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.ParameterSet), args.Error(1)
}

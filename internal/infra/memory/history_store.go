package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
)

// HistoryStore is an in-memory implementation of app.HistoryRepository.
// A single mutex serializes count-then-insert, so attempt numbers never collide.
type HistoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records []domain.HistoryRecord
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{nextID: 1}
}

func (s *HistoryStore) CountAttempts(_ context.Context, scope domain.AttemptScope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked(scope), nil
}

func (s *HistoryStore) InsertAttempt(_ context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.AttemptNumber = engine.NextAttemptNumber(s.countLocked(rec.Scope()))
	rec.ID = s.nextID
	s.nextID++
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *HistoryStore) ListByUser(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.HistoryRecord, 0)
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(out[j].CompletedAt)
	})
	return out, nil
}

func (s *HistoryStore) TotalsByUser(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[string]int)
	for _, rec := range s.records {
		if rec.Status == domain.StatusCompleted {
			totals[rec.UserID] += rec.Score
		}
	}
	return totals, nil
}

func (s *HistoryStore) countLocked(scope domain.AttemptScope) int {
	n := 0
	for _, rec := range s.records {
		if rec.Matches(scope) {
			n++
		}
	}
	return n
}

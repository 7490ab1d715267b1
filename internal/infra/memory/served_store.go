package memory

import (
	"context"
	"sync"
	"time"

	"quiz-engine-service/internal/domain"
)

// ServedQuizStore is an in-memory implementation of app.ServedQuizStore.
type ServedQuizStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.RWMutex
	served map[string]servedEntry
}

type servedEntry struct {
	quiz      domain.ServedQuiz
	expiresAt time.Time
}

// NewServedQuizStore keeps served quizzes for ttl; a non-positive ttl keeps them forever.
func NewServedQuizStore(ttl time.Duration) *ServedQuizStore {
	return &ServedQuizStore{
		ttl:    ttl,
		clock:  time.Now,
		served: make(map[string]servedEntry),
	}
}

func (s *ServedQuizStore) Save(_ context.Context, served domain.ServedQuiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.evictLocked(now)
	entry := servedEntry{quiz: served}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	s.served[served.Token] = entry
	return nil
}

func (s *ServedQuizStore) Get(_ context.Context, token string) (domain.ServedQuiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.served[token]
	if !ok || s.expired(entry, s.clock()) {
		return domain.ServedQuiz{}, domain.ErrServedQuizNotFound
	}
	return entry.quiz, nil
}

// Len reports how many served quizzes are retained, expired ones included until the next Save.
func (s *ServedQuizStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.served)
}

func (s *ServedQuizStore) evictLocked(now time.Time) {
	for token, entry := range s.served {
		if s.expired(entry, now) {
			delete(s.served, token)
		}
	}
}

func (s *ServedQuizStore) expired(entry servedEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(now)
}

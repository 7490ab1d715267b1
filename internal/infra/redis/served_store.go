package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"quiz-engine-service/internal/domain"
)

// ServedQuizStore keeps served orderings in Redis so any instance can grade a submission.
// Each served quiz is stored as JSON under quiz:served:{token} with a TTL.
type ServedQuizStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewServedQuizStore(client *redis.Client, ttl time.Duration) *ServedQuizStore {
	return &ServedQuizStore{client: client, ttl: ttl}
}

func (s *ServedQuizStore) Save(ctx context.Context, served domain.ServedQuiz) error {
	raw, err := json.Marshal(served)
	if err != nil {
		return fmt.Errorf("marshal served quiz: %w", err)
	}
	return s.client.Set(ctx, s.key(served.Token), raw, s.ttl).Err()
}

func (s *ServedQuizStore) Get(ctx context.Context, token string) (domain.ServedQuiz, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ServedQuiz{}, domain.ErrServedQuizNotFound
	}
	if err != nil {
		return domain.ServedQuiz{}, fmt.Errorf("get served quiz: %w", err)
	}
	var served domain.ServedQuiz
	if err := json.Unmarshal(raw, &served); err != nil {
		return domain.ServedQuiz{}, fmt.Errorf("unmarshal served quiz: %w", err)
	}
	return served, nil
}

func (s *ServedQuizStore) key(token string) string {
	return "quiz:served:" + token
}

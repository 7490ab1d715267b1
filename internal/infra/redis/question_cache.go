package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
)

// QuestionCache caches quiz content in Redis as JSON and falls back to a loader on cache miss.
// Keys:
//
//	quiz:{quizID}:meta       quiz attributes
//	quiz:{quizID}:questions  stored questions in stored order
//	pool:{filterKey}         standalone pool for a filter
type QuestionCache struct {
	client *redis.Client
	loader app.QuestionRepository
	ttl    time.Duration
	sf     singleflight.Group
	log    logrus.FieldLogger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader app.QuestionRepository, ttl time.Duration, log logrus.FieldLogger) *QuestionCache {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuiz(ctx context.Context, quizID string) (domain.QuizMeta, error) {
	var meta domain.QuizMeta
	err := c.cached(ctx, "quiz:"+quizID+":meta", &meta, func() (any, error) {
		return c.loader.LoadQuiz(ctx, quizID)
	})
	return meta, err
}

func (c *QuestionCache) FindByQuizID(ctx context.Context, quizID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.cached(ctx, "quiz:"+quizID+":questions", &questions, func() (any, error) {
		return c.loader.FindByQuizID(ctx, quizID)
	})
	return questions, err
}

func (c *QuestionCache) FindStandalonePool(ctx context.Context, filter domain.PoolFilter) ([]domain.Question, error) {
	var questions []domain.Question
	err := c.cached(ctx, "pool:"+filter.Key(), &questions, func() (any, error) {
		return c.loader.FindStandalonePool(ctx, filter)
	})
	return questions, err
}

// ListQuizzes passes through to the loader.
func (c *QuestionCache) ListQuizzes(ctx context.Context, categoryID *string) ([]domain.QuizMeta, error) {
	return c.loader.ListQuizzes(ctx, categoryID)
}

// Invalidate drops cached content for a quiz, e.g. after an admin edit.
func (c *QuestionCache) Invalidate(ctx context.Context, quizID string) error {
	return c.client.Del(ctx, "quiz:"+quizID+":meta", "quiz:"+quizID+":questions").Err()
}

func (c *QuestionCache) cached(ctx context.Context, key string, dest any, load func() (any, error)) error {
	if ok := c.readCache(ctx, key, dest); ok {
		return nil
	}

	raw, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}

		value, err := load()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		if err := c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err(); err != nil {
			// cache write failures are not fatal, the loader result is still valid
			c.log.WithError(err).WithField("key", key).Warn("redis cache write failed")
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func (c *QuestionCache) readCache(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("key", key).Warn("redis cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("discarding corrupt cache entry")
		return false
	}
	return true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

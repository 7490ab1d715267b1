package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
)

// CachedQuestions caches quiz content with TTL to avoid repeated DB hits.
type CachedQuestions struct {
	loader app.QuestionRepository
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewCachedQuestions(loader app.QuestionRepository, ttl time.Duration) *CachedQuestions {
	return &CachedQuestions{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (r *CachedQuestions) LoadQuiz(ctx context.Context, quizID string) (domain.QuizMeta, error) {
	v, err := r.get("meta:"+quizID, func() (any, error) {
		return r.loader.LoadQuiz(ctx, quizID)
	})
	if err != nil {
		return domain.QuizMeta{}, err
	}
	return v.(domain.QuizMeta), nil
}

func (r *CachedQuestions) FindByQuizID(ctx context.Context, quizID string) ([]domain.Question, error) {
	v, err := r.get("questions:"+quizID, func() (any, error) {
		return r.loader.FindByQuizID(ctx, quizID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

func (r *CachedQuestions) FindStandalonePool(ctx context.Context, filter domain.PoolFilter) ([]domain.Question, error) {
	v, err := r.get("pool:"+filter.Key(), func() (any, error) {
		return r.loader.FindStandalonePool(ctx, filter)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

// ListQuizzes is not cached; listings change with admin edits.
func (r *CachedQuestions) ListQuizzes(ctx context.Context, categoryID *string) ([]domain.QuizMeta, error) {
	return r.loader.ListQuizzes(ctx, categoryID)
}

func (r *CachedQuestions) get(key string, load func() (any, error)) (any, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.value, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.value, nil
		}
		r.mu.RUnlock()

		value, err := load()
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[key] = cachedEntry{
			value:     value,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CachedQuestions) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestions is a simple repository backed by in-memory maps (useful for tests/demos).
type StaticQuestions struct {
	quizzes    map[string]domain.QuizMeta
	questions  map[string][]domain.Question
	standalone []StandaloneQuestion
}

// StandaloneQuestion is a pool question with an optional category.
type StandaloneQuestion struct {
	domain.Question
	CategoryID *string
}

func NewStaticQuestions(quizzes map[string]domain.QuizMeta, questions map[string][]domain.Question, standalone []StandaloneQuestion) *StaticQuestions {
	return &StaticQuestions{quizzes: quizzes, questions: questions, standalone: standalone}
}

func (s *StaticQuestions) LoadQuiz(_ context.Context, quizID string) (domain.QuizMeta, error) {
	if quiz, ok := s.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.QuizMeta{}, domain.ErrQuizNotFound
}

func (s *StaticQuestions) FindByQuizID(_ context.Context, quizID string) ([]domain.Question, error) {
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	return append([]domain.Question(nil), s.questions[quizID]...), nil
}

func (s *StaticQuestions) FindStandalonePool(_ context.Context, filter domain.PoolFilter) ([]domain.Question, error) {
	out := make([]domain.Question, 0, len(s.standalone))
	for _, q := range s.standalone {
		if filter.CategoryID != nil && *filter.CategoryID != "" {
			if q.CategoryID == nil || *q.CategoryID != *filter.CategoryID {
				continue
			}
		}
		out = append(out, q.Question)
	}
	return out, nil
}

func (s *StaticQuestions) ListQuizzes(_ context.Context, categoryID *string) ([]domain.QuizMeta, error) {
	out := make([]domain.QuizMeta, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if categoryID != nil && *categoryID != "" && q.Category.ID != *categoryID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

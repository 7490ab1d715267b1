package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
)

func TestCachedQuestionsCaches(t *testing.T) {
	loader := &countingLoader{QuestionRepository: sampleRepo()}
	repo := NewCachedQuestions(loader, time.Minute)

	if _, err := repo.FindByQuizID(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("find questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.FindByQuizID(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("find questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestCachedQuestionsExpires(t *testing.T) {
	loader := &countingLoader{QuestionRepository: sampleRepo()}
	repo := NewCachedQuestions(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.FindStandalonePool(context.Background(), domain.PoolFilter{}); err != nil {
		t.Fatalf("pool: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.FindStandalonePool(context.Background(), domain.PoolFilter{}); err != nil {
		t.Fatalf("pool 2: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestCachedQuestionsDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{QuestionRepository: sampleRepo()}
	repo := NewCachedQuestions(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.LoadQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.calls != 2 {
		t.Fatalf("expected errors to bypass cache, loader calls %d", loader.calls)
	}
}

func TestStaticQuestionsPoolFilter(t *testing.T) {
	repo := sampleRepo()
	all, _ := repo.FindStandalonePool(context.Background(), domain.PoolFilter{})
	if len(all) != 3 {
		t.Fatalf("expected 3 pool questions, got %d", len(all))
	}
	cat := "science"
	filtered, _ := repo.FindStandalonePool(context.Background(), domain.PoolFilter{CategoryID: &cat})
	if len(filtered) != 1 || filtered[0].ID != "s3" {
		t.Fatalf("expected only s3, got %+v", filtered)
	}
}

type countingLoader struct {
	app.QuestionRepository
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizMeta, error) {
	l.calls++
	return l.QuestionRepository.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) FindByQuizID(ctx context.Context, quizID string) ([]domain.Question, error) {
	l.calls++
	return l.QuestionRepository.FindByQuizID(ctx, quizID)
}

func (l *countingLoader) FindStandalonePool(ctx context.Context, filter domain.PoolFilter) ([]domain.Question, error) {
	l.calls++
	return l.QuestionRepository.FindStandalonePool(ctx, filter)
}

func sampleRepo() *StaticQuestions {
	science := "science"
	return NewStaticQuestions(
		map[string]domain.QuizMeta{
			"quiz-1": {ID: "quiz-1", Title: "Arithmetic", Active: true},
		},
		map[string][]domain.Question{
			"quiz-1": {
				{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Answer: "4"},
			},
		},
		[]StandaloneQuestion{
			{Question: domain.Question{ID: "s1", Prompt: "1 + 1?", Options: []string{"1", "2"}, Answer: "2"}},
			{Question: domain.Question{ID: "s2", Prompt: "3 - 1?", Options: []string{"2", "3"}, Answer: "2"}},
			{Question: domain.Question{ID: "s3", Prompt: "H2O is?", Options: []string{"Water", "Salt"}, Answer: "Water"}, CategoryID: &science},
		},
	)
}

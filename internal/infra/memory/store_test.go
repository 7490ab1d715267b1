package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"quiz-engine-service/internal/domain"
)

func TestServedQuizStoreLifecycle(t *testing.T) {
	store := NewServedQuizStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	served := domain.ServedQuiz{Token: "tok-1", UserID: "u1", View: domain.QuizView{ID: "quiz-1"}}
	if err := store.Save(context.Background(), served); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(context.Background(), "tok-1")
	if err != nil || got.View.ID != "quiz-1" {
		t.Fatalf("expected served quiz, got %+v err=%v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), "tok-1"); !errors.Is(err, domain.ErrServedQuizNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}

	_ = store.Save(context.Background(), domain.ServedQuiz{Token: "tok-2"})
	if store.Len() != 1 {
		t.Fatalf("expected expired entry evicted, have %d", store.Len())
	}
}

func TestHistoryStoreConcurrentAttemptsAreSequential(t *testing.T) {
	store := NewHistoryStore()
	quiz := "quiz-1"

	const submissions = 25
	var wg sync.WaitGroup
	numbers := make([]int, submissions)
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := store.InsertAttempt(context.Background(), domain.HistoryRecord{
				UserID: "u1",
				QuizID: &quiz,
				Status: domain.StatusCompleted,
			})
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			numbers[i] = rec.AttemptNumber
		}(i)
	}
	wg.Wait()

	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			t.Fatalf("expected attempt numbers 1..%d, got %v", submissions, numbers)
		}
	}
}

func TestHistoryStoreScopesAttempts(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	quiz := "quiz-1"
	cat := "3"

	insert := func(rec domain.HistoryRecord) domain.HistoryRecord {
		rec.Status = domain.StatusCompleted
		out, err := store.InsertAttempt(ctx, rec)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		return out
	}

	if got := insert(domain.HistoryRecord{UserID: "u1", QuizID: &quiz}).AttemptNumber; got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := insert(domain.HistoryRecord{UserID: "u1", QuizID: &quiz}).AttemptNumber; got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := insert(domain.HistoryRecord{UserID: "u1"}).AttemptNumber; got != 1 {
		t.Fatalf("dynamic scope should start at 1, got %d", got)
	}
	if got := insert(domain.HistoryRecord{UserID: "u1", CategoryID: &cat}).AttemptNumber; got != 1 {
		t.Fatalf("category scope should start at 1, got %d", got)
	}
	if got := insert(domain.HistoryRecord{UserID: "u2", QuizID: &quiz}).AttemptNumber; got != 1 {
		t.Fatalf("other user should start at 1, got %d", got)
	}

	n, _ := store.CountAttempts(ctx, domain.AttemptScope{UserID: "u1", QuizID: &quiz})
	if n != 2 {
		t.Fatalf("expected 2 prior attempts, got %d", n)
	}
}

func TestHistoryStoreListAndTotals(t *testing.T) {
	store := NewHistoryStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, score := range []int{40, 90, 70} {
		_, _ = store.InsertAttempt(ctx, domain.HistoryRecord{
			UserID:      "u1",
			Score:       score,
			Status:      domain.StatusCompleted,
			CompletedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}
	_, _ = store.InsertAttempt(ctx, domain.HistoryRecord{UserID: "u2", Score: 10, Status: domain.StatusCompleted})

	list, _ := store.ListByUser(ctx, "u1")
	if len(list) != 3 || list[0].Score != 70 {
		t.Fatalf("expected newest first, got %+v", list)
	}
	totals, _ := store.TotalsByUser(ctx)
	if totals["u1"] != 200 || totals["u2"] != 10 {
		t.Fatalf("unexpected totals %v", totals)
	}
}

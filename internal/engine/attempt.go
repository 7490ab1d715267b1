package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/domain"
)

// HistoryRepository persists attempts.
type HistoryRepository interface {
	// CountAttempts counts completed records matching scope; nil ids only match nil ids.
	CountAttempts(ctx context.Context, scope domain.AttemptScope) (int, error)
	// InsertAttempt counts prior attempts for the record's scope and inserts it with the next
	// attempt number as one atomic step. Implementations return domain.ErrAttemptConflict when a
	// concurrent insert claimed the same number.
	InsertAttempt(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error)
}

// NextAttemptNumber returns the attempt number that follows prior completed attempts.
func NextAttemptNumber(prior int) int {
	if prior < 0 {
		prior = 0
	}
	return prior + 1
}

// AttemptRecorder numbers and stores graded attempts.
type AttemptRecorder struct {
	repo       HistoryRepository
	maxRetries int
	log        logrus.FieldLogger
	onConflict func()
}

// NewAttemptRecorder returns a recorder retrying conflicting inserts up to maxRetries times.
func NewAttemptRecorder(repo HistoryRepository, maxRetries int, log logrus.FieldLogger) *AttemptRecorder {
	if log == nil {
		log = discardLogger()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &AttemptRecorder{repo: repo, maxRetries: maxRetries, log: log, onConflict: func() {}}
}

// OnConflict registers a hook called for every conflicting insert, e.g. a metrics counter.
func (r *AttemptRecorder) OnConflict(fn func()) {
	if fn != nil {
		r.onConflict = fn
	}
}

// NextAttemptNumber previews the number the next completed attempt in scope would get.
func (r *AttemptRecorder) NextAttemptNumber(ctx context.Context, scope domain.AttemptScope) (int, error) {
	n, err := r.repo.CountAttempts(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return NextAttemptNumber(n), nil
}

// Record stores rec as a completed attempt and returns it with its id and attempt number.
func (r *AttemptRecorder) Record(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	rec.Status = domain.StatusCompleted
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		stored, err := r.repo.InsertAttempt(ctx, rec)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, domain.ErrAttemptConflict) {
			return domain.HistoryRecord{}, fmt.Errorf("insert attempt: %w", err)
		}
		r.onConflict()
		r.log.WithFields(logrus.Fields{
			"user_id": rec.UserID,
			"retry":   attempt + 1,
		}).Warn("attempt number conflict, retrying")
		lastErr = err
		if err := ctx.Err(); err != nil {
			return domain.HistoryRecord{}, err
		}
	}
	return domain.HistoryRecord{}, lastErr
}

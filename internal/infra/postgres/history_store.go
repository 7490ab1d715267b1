package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type historyRow struct {
	bun.BaseModel `bun:"table:quiz_history,alias:h"`

	ID             int64     `bun:"id,pk,autoincrement"`
	UserID         string    `bun:"user_id,notnull"`
	QuizID         *string   `bun:"quiz_id"`
	CategoryID     *string   `bun:"category_id"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	TimeTaken      int       `bun:"time_taken,notnull"`
	AttemptNumber  int       `bun:"attempt_number,notnull"`
	StartedAt      time.Time `bun:"started_at,notnull"`
	CompletedAt    time.Time `bun:"completed_at,nullzero"`
	Status         string    `bun:"status,notnull"`
	Mode           string    `bun:"mode,notnull"`
}

func toRow(rec domain.HistoryRecord) historyRow {
	return historyRow{
		ID:             rec.ID,
		UserID:         rec.UserID,
		QuizID:         rec.QuizID,
		CategoryID:     rec.CategoryID,
		Score:          rec.Score,
		TotalQuestions: rec.TotalQuestions,
		TimeTaken:      rec.TimeTaken,
		AttemptNumber:  rec.AttemptNumber,
		StartedAt:      rec.StartedAt,
		CompletedAt:    rec.CompletedAt,
		Status:         rec.Status,
		Mode:           string(rec.Mode),
	}
}

func (r historyRow) record() domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:             r.ID,
		UserID:         r.UserID,
		QuizID:         r.QuizID,
		CategoryID:     r.CategoryID,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		TimeTaken:      r.TimeTaken,
		AttemptNumber:  r.AttemptNumber,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		Status:         r.Status,
		Mode:           domain.ParseMode(r.Mode),
	}
}

// HistoryStore persists attempts in the quiz_history table. A unique index over
// (user_id, quiz_id, category_id, attempt_number) backs the transactional count+insert.
type HistoryStore struct {
	db *bun.DB
}

func NewHistoryStore(db *bun.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func (s *HistoryStore) CountAttempts(ctx context.Context, scope domain.AttemptScope) (int, error) {
	n, err := countAttempts(ctx, s.db, scope)
	if err != nil {
		return 0, fmt.Errorf("count attempts: %w", err)
	}
	return n, nil
}

// InsertAttempt numbers the record inside a transaction. A concurrent insert that claimed the
// same number surfaces as domain.ErrAttemptConflict.
func (s *HistoryStore) InsertAttempt(ctx context.Context, rec domain.HistoryRecord) (domain.HistoryRecord, error) {
	row := toRow(rec)
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		prior, err := countAttempts(ctx, tx, rec.Scope())
		if err != nil {
			return fmt.Errorf("count attempts: %w", err)
		}
		row.AttemptNumber = engine.NextAttemptNumber(prior)
		if _, err := tx.NewInsert().Model(&row).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domain.HistoryRecord{}, fmt.Errorf("%w: %v", domain.ErrAttemptConflict, err)
		}
		return domain.HistoryRecord{}, err
	}
	return row.record(), nil
}

// ListByUser returns a user's attempts, most recent first.
func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	var rows []historyRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("h.user_id = ?", userID).
		OrderExpr("h.completed_at DESC NULLS LAST, h.id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]domain.HistoryRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// TotalsByUser sums completed scores per user.
func (s *HistoryStore) TotalsByUser(ctx context.Context) (map[string]int, error) {
	var totals []struct {
		UserID string `bun:"user_id"`
		Points int    `bun:"points"`
	}
	err := s.db.NewSelect().
		Model((*historyRow)(nil)).
		ColumnExpr("h.user_id").
		ColumnExpr("coalesce(sum(h.score), 0) AS points").
		Where("h.status = ?", domain.StatusCompleted).
		Group("h.user_id").
		Scan(ctx, &totals)
	if err != nil {
		return nil, fmt.Errorf("sum history: %w", err)
	}
	out := make(map[string]int, len(totals))
	for _, t := range totals {
		out[t.UserID] = t.Points
	}
	return out, nil
}

func countAttempts(ctx context.Context, db bun.IDB, scope domain.AttemptScope) (int, error) {
	q := db.NewSelect().
		Model((*historyRow)(nil)).
		Where("h.user_id = ?", scope.UserID).
		Where("h.status = ?", domain.StatusCompleted)
	q = whereOptional(q, "h.quiz_id", scope.QuizID)
	q = whereOptional(q, "h.category_id", scope.CategoryID)
	return q.Count(ctx)
}

// whereOptional matches NULL columns against nil ids and values otherwise.
func whereOptional(q *bun.SelectQuery, column string, value *string) *bun.SelectQuery {
	if value == nil {
		return q.Where(column + " IS NULL")
	}
	return q.Where(column+" = ?", *value)
}

type sqlStateError interface {
	Field(k byte) string
}

func isUniqueViolation(err error) bool {
	var pgErr sqlStateError
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
)

// QuestionRepository loads quiz content (from cache/backing store).
type QuestionRepository interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.QuizMeta, error)
	FindByQuizID(ctx context.Context, quizID string) ([]domain.Question, error)
	FindStandalonePool(ctx context.Context, filter domain.PoolFilter) ([]domain.Question, error)
	ListQuizzes(ctx context.Context, categoryID *string) ([]domain.QuizMeta, error)
}

// ServedQuizStore keeps served orderings until they are graded or expire.
type ServedQuizStore interface {
	Save(ctx context.Context, served domain.ServedQuiz) error
	// Get returns domain.ErrServedQuizNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (domain.ServedQuiz, error)
}

// HistoryRepository abstracts how attempts are stored (in-memory, Postgres).
type HistoryRepository interface {
	engine.HistoryRepository
	ListByUser(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
	TotalsByUser(ctx context.Context) (map[string]int, error)
}

// Observer receives use-case level signals, typically backed by Prometheus.
type Observer interface {
	QuizAssembled(kind string, mode domain.Mode)
	AssemblyFailed(reason string)
	SubmissionGraded(kind string, score int)
	AttemptConflict()
}

type noopObserver struct{}

func (noopObserver) QuizAssembled(string, domain.Mode) {}
func (noopObserver) AssemblyFailed(string)             {}
func (noopObserver) SubmissionGraded(string, int)      {}
func (noopObserver) AttemptConflict()                  {}

// Options tunes a QuizService. Zero values fall back to defaults.
type Options struct {
	Assembler           *engine.Assembler
	Logger              logrus.FieldLogger
	Observer            Observer
	DefaultDynamicCount int
	MaxAttemptRetries   int
	Clock               func() time.Time
	NewToken            func() string
}

// Submission is a graded attempt request.
type Submission struct {
	Token          string                   `json:"token" validate:"required"`
	UserID         string                   `json:"-"`
	Answers        []domain.SubmittedAnswer `json:"answers" validate:"dive"`
	TimeTaken      int                      `json:"time_taken" validate:"gte=0"`
	TotalQuestions int                      `json:"total_questions" validate:"gte=0"`
	StartedAt      time.Time                `json:"started_at"`
	CompletedAt    time.Time                `json:"completed_at"`
}

// SubmitResult is returned to the caller after a submission is recorded.
type SubmitResult struct {
	domain.AttemptResult
	HistoryID     int64     `json:"history_id"`
	AttemptNumber int       `json:"attempt_number"`
	CompletedAt   time.Time `json:"completed_at"`
}

// QuizService contains the quiz use cases.
type QuizService struct {
	questions QuestionRepository
	served    ServedQuizStore
	history   HistoryRepository
	assembler *engine.Assembler
	grader    *engine.Grader
	recorder  *engine.AttemptRecorder
	board     *LeaderboardHub
	seedMu    sync.RWMutex
	observer  Observer
	log       logrus.FieldLogger
	now       func() time.Time
	newToken  func() string

	defaultDynamicCount int
}

func NewQuizService(questions QuestionRepository, served ServedQuizStore, history HistoryRepository, opts Options) *QuizService {
	if opts.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		opts.Logger = l
	}
	if opts.Assembler == nil {
		opts.Assembler = engine.NewAssembler(engine.WithLogger(opts.Logger))
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.DefaultDynamicCount <= 0 {
		opts.DefaultDynamicCount = 15
	}
	if opts.MaxAttemptRetries <= 0 {
		opts.MaxAttemptRetries = 3
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewToken == nil {
		opts.NewToken = func() string { return uuid.NewString() }
	}

	recorder := engine.NewAttemptRecorder(history, opts.MaxAttemptRetries, opts.Logger)
	recorder.OnConflict(opts.Observer.AttemptConflict)

	return &QuizService{
		questions:           questions,
		served:              served,
		history:             history,
		assembler:           opts.Assembler,
		grader:              engine.NewGrader(opts.Logger),
		recorder:            recorder,
		board:               NewLeaderboardHub(opts.Clock),
		observer:            opts.Observer,
		log:                 opts.Logger,
		now:                 opts.Clock,
		newToken:            opts.NewToken,
		defaultDynamicCount: opts.DefaultDynamicCount,
	}
}

// ListQuizzes returns the active quizzes, optionally restricted to a category.
func (s *QuizService) ListQuizzes(ctx context.Context, categoryID *string) ([]domain.QuizSummary, error) {
	metas, err := s.questions.ListQuizzes(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizSummary, 0, len(metas))
	for _, m := range metas {
		if !m.Active {
			continue
		}
		out = append(out, domain.QuizSummary{
			ID:          m.ID,
			Title:       orDefault(m.Title, "Unnamed Quiz"),
			Category:    m.Category,
			Difficulty:  orDefault(m.Difficulty, "medium"),
			Description: orDefault(m.Description, "No description available"),
			TimeLimit:   domain.ModeStandard.TimeLimit(m.TimeLimit, domain.DefaultTimeLimit),
			IsPublic:    m.Active,
		})
	}
	return out, nil
}

// ServeQuiz assembles every question of a stored quiz and pins the served ordering.
func (s *QuizService) ServeQuiz(ctx context.Context, userID, quizID string, mode domain.Mode) (domain.ServedQuiz, error) {
	meta, err := s.questions.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.ServedQuiz{}, err
	}
	if !meta.Active {
		return domain.ServedQuiz{}, domain.ErrQuizInactive
	}
	pool, err := s.questions.FindByQuizID(ctx, quizID)
	if err != nil {
		return domain.ServedQuiz{}, err
	}
	if len(pool) == 0 {
		s.observer.AssemblyFailed("empty_quiz")
		return domain.ServedQuiz{}, fmt.Errorf("%w: quiz %s has no questions", domain.ErrInsufficientQuestions, quizID)
	}

	view, err := s.assembler.Assemble(pool, len(pool), mode, meta)
	if err != nil {
		s.observer.AssemblyFailed(failureReason(err))
		return domain.ServedQuiz{}, err
	}
	categoryID := meta.Category.ID
	return s.pin(ctx, userID, &categoryID, view, "quiz")
}

// ServeDynamicQuiz samples count questions from the standalone pool. A count of 0 uses the default.
func (s *QuizService) ServeDynamicQuiz(ctx context.Context, userID string, filter domain.PoolFilter, count int, mode domain.Mode) (domain.ServedQuiz, error) {
	if count == 0 {
		count = s.defaultDynamicCount
	}
	if count < 1 {
		return domain.ServedQuiz{}, domain.ErrInvalidCount
	}
	pool, err := s.questions.FindStandalonePool(ctx, filter)
	if err != nil {
		return domain.ServedQuiz{}, err
	}
	view, err := s.assembler.Assemble(pool, count, mode, engine.DynamicMeta(mode, filter.CategoryID, count))
	if err != nil {
		s.observer.AssemblyFailed(failureReason(err))
		s.log.WithFields(logrus.Fields{
			"pool":      len(pool),
			"requested": count,
		}).WithError(err).Info("dynamic quiz not assembled")
		return domain.ServedQuiz{}, err
	}
	return s.pin(ctx, userID, filter.CategoryID, view, "dynamic")
}

func (s *QuizService) pin(ctx context.Context, userID string, categoryID *string, view domain.QuizView, kind string) (domain.ServedQuiz, error) {
	served := domain.ServedQuiz{
		Token:      s.newToken(),
		UserID:     userID,
		CategoryID: categoryID,
		View:       view,
		ServedAt:   s.now(),
	}
	if err := s.served.Save(ctx, served); err != nil {
		return domain.ServedQuiz{}, fmt.Errorf("save served quiz: %w", err)
	}
	s.observer.QuizAssembled(kind, view.Mode)
	s.log.WithFields(logrus.Fields{
		"quiz_id":   view.ID,
		"user_id":   userID,
		"questions": len(view.Questions),
		"mode":      view.Mode,
	}).Debug("quiz served")
	return served, nil
}

// Submit grades answers against the served ordering and records the attempt.
func (s *QuizService) Submit(ctx context.Context, sub Submission) (SubmitResult, error) {
	served, err := s.served.Get(ctx, sub.Token)
	if err != nil {
		return SubmitResult{}, err
	}
	if served.UserID != sub.UserID {
		return SubmitResult{}, domain.ErrServedQuizNotFound
	}

	total := max(sub.TotalQuestions, len(served.View.Questions))
	result := s.grader.Grade(served.View.QuestionsByID(), sub.Answers, total)
	result.Token = served.Token

	rec := domain.HistoryRecord{
		UserID:         sub.UserID,
		CategoryID:     served.CategoryID,
		Score:          result.Score,
		TotalQuestions: result.Total,
		TimeTaken:      sub.TimeTaken,
		StartedAt:      sub.StartedAt,
		CompletedAt:    sub.CompletedAt,
		Mode:           served.View.Mode,
	}
	if !served.View.IsDynamic() {
		quizID := served.View.ID
		rec.QuizID = &quizID
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = served.ServedAt
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}

	// Seeding reads persisted totals; holding seedMu keeps this attempt either inside the
	// seeded totals or applied afterwards, never both.
	s.seedMu.RLock()
	stored, err := s.recorder.Record(ctx, rec)
	if err == nil && s.board.Loaded() {
		s.board.Apply(sub.UserID, result.Score)
	}
	s.seedMu.RUnlock()
	if err != nil {
		return SubmitResult{}, err
	}

	kind := "quiz"
	if served.View.IsDynamic() {
		kind = "dynamic"
	}
	s.observer.SubmissionGraded(kind, result.Score)

	s.log.WithFields(logrus.Fields{
		"user_id": sub.UserID,
		"quiz_id": served.View.ID,
		"score":   result.Score,
		"correct": result.Correct,
		"total":   result.Total,
		"attempt": stored.AttemptNumber,
	}).Info("quiz attempt recorded")

	return SubmitResult{
		AttemptResult: result,
		HistoryID:     stored.ID,
		AttemptNumber: stored.AttemptNumber,
		CompletedAt:   stored.CompletedAt,
	}, nil
}

// NextAttemptNumber previews the attempt number of the next completed attempt in scope.
func (s *QuizService) NextAttemptNumber(ctx context.Context, scope domain.AttemptScope) (int, error) {
	return s.recorder.NextAttemptNumber(ctx, scope)
}

// History lists a user's attempts, most recent first.
func (s *QuizService) History(ctx context.Context, userID string) ([]domain.HistorySummary, error) {
	records, err := s.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	titles := map[string]domain.QuizMeta{}
	out := make([]domain.HistorySummary, 0, len(records))
	for _, rec := range records {
		title, category := "", ""
		if rec.QuizID != nil {
			meta, ok := titles[*rec.QuizID]
			if !ok {
				meta, err = s.questions.LoadQuiz(ctx, *rec.QuizID)
				if err != nil && !errors.Is(err, domain.ErrQuizNotFound) {
					return nil, err
				}
				titles[*rec.QuizID] = meta
			}
			title, category = meta.Title, meta.Category.Name
		}
		out = append(out, rec.Summarize(title, category))
	}
	return out, nil
}

// Leaderboard returns ranked totals across all recorded attempts.
func (s *QuizService) Leaderboard(ctx context.Context) (domain.Leaderboard, error) {
	if err := s.ensureBoard(ctx); err != nil {
		return domain.Leaderboard{}, err
	}
	return s.board.Snapshot(), nil
}

// SubscribeLeaderboard returns a channel that receives leaderboard updates.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) SubscribeLeaderboard(ctx context.Context) (<-chan domain.Leaderboard, func(), error) {
	if err := s.ensureBoard(ctx); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.board.Subscribe()
	return ch, cancel, nil
}

func (s *QuizService) ensureBoard(ctx context.Context) error {
	if s.board.Loaded() {
		return nil
	}
	s.seedMu.Lock()
	defer s.seedMu.Unlock()
	if s.board.Loaded() {
		return nil
	}
	totals, err := s.history.TotalsByUser(ctx)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	s.board.Seed(totals)
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientQuestions):
		return "insufficient_questions"
	case errors.Is(err, domain.ErrInvalidCount):
		return "invalid_count"
	default:
		return "internal"
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

package domain

import (
	"fmt"
	"time"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeMultipleAnswer QuestionType = "multiple_answer"
	TypeShortAnswer    QuestionType = "short_answer"
)

// ParseQuestionType maps stored type tags to a QuestionType; unknown tags become multiple choice.
func ParseQuestionType(raw string) QuestionType {
	switch QuestionType(raw) {
	case TypeTrueFalse, TypeMultipleAnswer, TypeShortAnswer:
		return QuestionType(raw)
	default:
		return TypeMultipleChoice
	}
}

// Question is a stored question as read from a quiz or the standalone pool.
type Question struct {
	ID          string       `json:"id" yaml:"id"`
	QuizID      *string      `json:"quizId,omitempty" yaml:"quizId,omitempty"`
	Prompt      string       `json:"question" yaml:"question"`
	Type        QuestionType `json:"type" yaml:"type"`
	Options     []string     `json:"options" yaml:"options"`
	Answer      string       `json:"answer" yaml:"answer"`
	Explanation string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Normalize fills display fallbacks for incomplete stored questions.
func (q Question) Normalize() Question {
	if q.Prompt == "" {
		q.Prompt = fmt.Sprintf("Question %s (Text Missing)", q.ID)
	}
	q.Type = ParseQuestionType(string(q.Type))
	if q.Explanation == "" {
		q.Explanation = "No explanation provided."
	}
	return q
}

// Validate checks authoring consistency between the answer and the options.
func (q Question) Validate() error {
	switch ParseQuestionType(string(q.Type)) {
	case TypeTrueFalse:
		if len(q.Options) != 2 || q.Options[0] != "True" || q.Options[1] != "False" {
			return fmt.Errorf("%w: true/false options must be [True False]", ErrInvalidQuestion)
		}
		if q.Answer != "True" && q.Answer != "False" {
			return fmt.Errorf("%w: answer must be True or False", ErrInvalidQuestion)
		}
	case TypeMultipleChoice:
		if len(q.Options) == 0 {
			return nil
		}
		for _, opt := range q.Options {
			if opt == q.Answer {
				return nil
			}
		}
		return fmt.Errorf("%w: answer %q is not one of the options", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

// Mode is the play mode requested by the client.
type Mode string

const (
	ModeStandard    Mode = "standard"
	ModeRapidFire   Mode = "rapidfire"
	ModeTimeFree    Mode = "timefree"
	ModeHardMode    Mode = "hardmode"
	ModeMultiplayer Mode = "multiplayer"
)

// DefaultTimeLimit is used when neither the quiz nor configuration sets one.
const DefaultTimeLimit = 15

// ParseMode returns the Mode for a tag; unrecognized tags behave as standard.
func ParseMode(raw string) Mode {
	switch Mode(raw) {
	case ModeRapidFire, ModeTimeFree, ModeHardMode, ModeMultiplayer:
		return Mode(raw)
	default:
		return ModeStandard
	}
}

// TimeLimit resolves the time limit in minutes; 0 means untimed.
func (m Mode) TimeLimit(configured *int, fallback int) int {
	switch m {
	case ModeRapidFire:
		return 10
	case ModeTimeFree:
		return 0
	case ModeHardMode, ModeMultiplayer:
		return 15
	}
	if configured != nil {
		return *configured
	}
	return fallback
}

// Category describes the grouping a quiz belongs to.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// QuizMeta holds quiz level attributes; questions are loaded separately.
type QuizMeta struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	TimeLimit   *int     `json:"timeLimit,omitempty"`
	Active      bool     `json:"isPublic"`
}

// QuizSummary is the listing view of an active quiz.
type QuizSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Difficulty  string   `json:"difficulty"`
	Description string   `json:"description"`
	TimeLimit   int      `json:"timeLimit"`
	IsPublic    bool     `json:"isPublic"`
}

// AssembledOption is one option in the served order. ID is the 1-based stored position.
type AssembledOption struct {
	ID        int    `json:"id"`
	Text      string `json:"option_text"`
	IsCorrect bool   `json:"is_correct"`
}

// AssembledQuestion is the served view of a Question.
type AssembledQuestion struct {
	ID          string            `json:"id"`
	Prompt      string            `json:"question"`
	Type        QuestionType      `json:"type"`
	Options     []AssembledOption `json:"options"`
	Answer      string            `json:"answer"`
	Explanation string            `json:"explanation"`
}

// DynamicQuizID identifies quizzes sampled from the standalone pool.
const DynamicQuizID = "dynamic"

// QuizView is an assembled quiz ready to be served.
type QuizView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Category    Category            `json:"category"`
	Difficulty  string              `json:"difficulty"`
	Description string              `json:"description"`
	TimeLimit   int                 `json:"timeLimit"`
	IsPublic    bool                `json:"isPublic"`
	Questions   []AssembledQuestion `json:"questions"`
	Mode        Mode                `json:"mode"`
}

// IsDynamic reports whether the view was sampled from the standalone pool.
func (v QuizView) IsDynamic() bool {
	return v.ID == DynamicQuizID
}

// QuestionsByID indexes the served questions.
func (v QuizView) QuestionsByID() map[string]AssembledQuestion {
	out := make(map[string]AssembledQuestion, len(v.Questions))
	for _, q := range v.Questions {
		out[q.ID] = q
	}
	return out
}

// ServedQuiz pins the served ordering between serving and grading.
type ServedQuiz struct {
	Token      string    `json:"token"`
	UserID     string    `json:"userId"`
	CategoryID *string   `json:"categoryId,omitempty"`
	View       QuizView  `json:"quiz"`
	ServedAt   time.Time `json:"servedAt"`
}

// SubmittedAnswer is a client's answer. Position is the 1-based index in the served option order;
// nil means unanswered. Text is only used for questions without options.
type SubmittedAnswer struct {
	QuestionID string  `json:"question_id" validate:"required"`
	Position   *int    `json:"option_id"`
	Text       *string `json:"text,omitempty"`
}

// AttemptResult is the outcome of grading one submission.
type AttemptResult struct {
	Token     string `json:"token,omitempty"`
	Correct   int    `json:"correct_answers"`
	Total     int    `json:"total_questions"`
	Score     int    `json:"score"`
	Processed int    `json:"processed"`
}

// AttemptScope keys attempt numbering.
type AttemptScope struct {
	UserID     string
	QuizID     *string
	CategoryID *string
}

const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// HistoryRecord is a persisted quiz attempt.
type HistoryRecord struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id"`
	QuizID         *string   `json:"quiz_id"`
	CategoryID     *string   `json:"category_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	TimeTaken      int       `json:"time_taken"`
	AttemptNumber  int       `json:"attempt_number"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
	Status         string    `json:"status"`
	Mode           Mode      `json:"mode"`
}

// Scope returns the attempt numbering key of the record.
func (r HistoryRecord) Scope() AttemptScope {
	return AttemptScope{UserID: r.UserID, QuizID: r.QuizID, CategoryID: r.CategoryID}
}

// Matches reports whether the record counts toward the given scope. Nil ids only match nil ids.
func (r HistoryRecord) Matches(scope AttemptScope) bool {
	return r.UserID == scope.UserID &&
		r.Status == StatusCompleted &&
		equalOptional(r.QuizID, scope.QuizID) &&
		equalOptional(r.CategoryID, scope.CategoryID)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// HistorySummary is the listing view of a history record.
type HistorySummary struct {
	ID             int64  `json:"id"`
	QuizID         string `json:"quizId"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Date           string `json:"date"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	TimeTaken      int    `json:"timeTaken"`
	AttemptNumber  int    `json:"attemptNumber"`
	Completed      bool   `json:"completed"`
}

// Summarize builds the listing view; titles and category names come from the quiz lookup.
func (r HistoryRecord) Summarize(quizTitle, categoryName string) HistorySummary {
	s := HistorySummary{
		ID:             r.ID,
		QuizID:         DynamicQuizID,
		Title:          "Dynamic Quiz",
		Category:       "All Categories",
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		TimeTaken:      r.TimeTaken / 60,
		AttemptNumber:  r.AttemptNumber,
		Completed:      r.Status == StatusCompleted,
	}
	if r.QuizID != nil {
		s.QuizID = *r.QuizID
		if quizTitle != "" {
			s.Title = quizTitle
		}
	}
	if categoryName != "" {
		s.Category = categoryName
	}
	date := r.CompletedAt
	if date.IsZero() {
		date = r.StartedAt
	}
	s.Date = date.UTC().Format(time.RFC3339)
	return s
}

// LeaderboardEntry is a ranked user total.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}

// Leaderboard captures the ordered scoreboard across all recorded attempts.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PoolFilter narrows the standalone question pool.
type PoolFilter struct {
	CategoryID *string
}

// Key returns a stable cache key for the filter.
func (f PoolFilter) Key() string {
	if f.CategoryID == nil || *f.CategoryID == "" {
		return "all"
	}
	return "category:" + *f.CategoryID
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseModeFallsBackToStandard(t *testing.T) {
	assert.Equal(t, ModeRapidFire, ParseMode("rapidfire"))
	assert.Equal(t, ModeStandard, ParseMode(""))
	assert.Equal(t, ModeStandard, ParseMode("blitz"), "unknown modes behave as standard")
}

func TestQuestionValidate(t *testing.T) {
	ok := Question{ID: "1", Type: TypeMultipleChoice, Options: []string{"a", "b"}, Answer: "b"}
	assert.NoError(t, ok.Validate())

	bad := Question{ID: "2", Type: TypeMultipleChoice, Options: []string{"a", "b"}, Answer: "c"}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidQuestion)

	tf := Question{ID: "3", Type: TypeTrueFalse, Options: []string{"True", "False"}, Answer: "Yes"}
	assert.ErrorIs(t, tf.Validate(), ErrInvalidQuestion)

	short := Question{ID: "4", Type: TypeShortAnswer, Answer: "anything"}
	assert.NoError(t, short.Validate())
}

func TestHistoryRecordMatchesNullableScope(t *testing.T) {
	quiz := "7"
	rec := HistoryRecord{UserID: "u1", QuizID: &quiz, Status: StatusCompleted}

	assert.True(t, rec.Matches(AttemptScope{UserID: "u1", QuizID: &quiz}))
	assert.False(t, rec.Matches(AttemptScope{UserID: "u1"}), "nil quiz scope must not match a quiz record")

	cat := "3"
	assert.False(t, rec.Matches(AttemptScope{UserID: "u1", QuizID: &quiz, CategoryID: &cat}))

	rec.Status = StatusInProgress
	assert.False(t, rec.Matches(AttemptScope{UserID: "u1", QuizID: &quiz}), "in-progress records do not count")
}

func TestSummarizeDynamicRecord(t *testing.T) {
	completed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := HistoryRecord{ID: 4, UserID: "u1", Score: 50, TotalQuestions: 4, TimeTaken: 125, CompletedAt: completed, Status: StatusCompleted}

	s := rec.Summarize("", "")
	assert.Equal(t, DynamicQuizID, s.QuizID)
	assert.Equal(t, "Dynamic Quiz", s.Title)
	assert.Equal(t, "All Categories", s.Category)
	assert.Equal(t, 2, s.TimeTaken, "minutes")
	assert.Equal(t, "2024-03-01T10:00:00Z", s.Date)
	assert.True(t, s.Completed)
}

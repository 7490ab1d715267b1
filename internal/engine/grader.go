package engine

import (
	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/domain"
)

// Grader scores submissions against a served quiz.
type Grader struct {
	log logrus.FieldLogger
}

// NewGrader returns a grader; a nil logger discards diagnostics.
func NewGrader(log logrus.FieldLogger) *Grader {
	if log == nil {
		log = discardLogger()
	}
	return &Grader{log: log}
}

// Grade resolves each answer against the served option order of its question. Answers for
// questions outside the served set are skipped and do not count, and only the first answer per
// question is graded. The denominator is the larger of declaredTotal and the number of distinct
// matched questions; a zero denominator scores 0.
func (g *Grader) Grade(served map[string]domain.AssembledQuestion, answers []domain.SubmittedAnswer, declaredTotal int) domain.AttemptResult {
	correct := 0
	processed := 0
	graded := make(map[string]struct{}, len(answers))
	for _, ans := range answers {
		q, ok := served[ans.QuestionID]
		if !ok {
			g.log.WithFields(logrus.Fields{
				"question_id": ans.QuestionID,
				"error":       domain.ErrUnresolvedQuestion.Error(),
			}).Debug("skipping answer")
			continue
		}
		if _, dup := graded[q.ID]; dup {
			g.log.WithField("question_id", q.ID).Debug("ignoring repeated answer")
			continue
		}
		graded[q.ID] = struct{}{}
		processed++

		text, ok := resolveAnswer(q, ans)
		if !ok {
			g.log.WithField("question_id", q.ID).Debug("answer missing or out of range")
			continue
		}
		if text == q.Answer {
			correct++
		}
	}

	total := declaredTotal
	if processed > total {
		total = processed
	}
	return domain.AttemptResult{
		Correct:   correct,
		Total:     total,
		Score:     Score(correct, total),
		Processed: processed,
	}
}

// Score returns the truncated percentage clamped to [0, 100].
func Score(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	score := correct * 100 / total
	if score > 100 {
		return 100
	}
	return score
}

// resolveAnswer maps a submitted answer to the option text at its served position. Free text is
// only considered for questions served without options.
func resolveAnswer(q domain.AssembledQuestion, ans domain.SubmittedAnswer) (string, bool) {
	if len(q.Options) == 0 {
		if ans.Text == nil {
			return "", false
		}
		return *ans.Text, true
	}
	if ans.Position == nil {
		return "", false
	}
	pos := *ans.Position
	if pos < 1 || pos > len(q.Options) {
		return "", false
	}
	return q.Options[pos-1].Text, true
}

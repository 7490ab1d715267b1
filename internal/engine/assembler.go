package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/domain"
)

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithSource overrides how the per-call random source is built. Tests use it to inject seeds.
func WithSource(newSource func() Source) AssemblerOption {
	return func(a *Assembler) { a.newSource = newSource }
}

// WithLogger sets the logger used for degraded questions.
func WithLogger(log logrus.FieldLogger) AssemblerOption {
	return func(a *Assembler) { a.log = log }
}

// WithDefaultTimeLimit sets the standard-mode limit used when a quiz has none configured.
func WithDefaultTimeLimit(minutes int) AssemblerOption {
	return func(a *Assembler) { a.defaultTimeLimit = minutes }
}

// Assembler builds served quizzes from question pools.
type Assembler struct {
	newSource        func() Source
	log              logrus.FieldLogger
	defaultTimeLimit int
}

// NewAssembler returns an assembler seeded from wall-clock time on every call.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		newSource:        func() Source { return NewTimeSeeded() },
		log:              discardLogger(),
		defaultTimeLimit: domain.DefaultTimeLimit,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble samples count questions from pool, shuffles question order and each option list with a
// single request-local source, and resolves the time limit for mode. meta supplies quiz level
// attributes; its ID is copied into the view as is.
func (a *Assembler) Assemble(pool []domain.Question, count int, mode domain.Mode, meta domain.QuizMeta) (domain.QuizView, error) {
	if count < 1 {
		return domain.QuizView{}, domain.ErrInvalidCount
	}
	if len(pool) < count {
		return domain.QuizView{}, fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientQuestions, len(pool), count)
	}
	mode = domain.ParseMode(string(mode))

	src := a.newSource()
	sampled, err := Sample(src, pool, count)
	if err != nil {
		return domain.QuizView{}, err
	}

	questions := make([]domain.AssembledQuestion, 0, len(sampled))
	for _, q := range sampled {
		questions = append(questions, assembleQuestion(q))
	}

	if err := Shuffle(src, questions); err != nil {
		return domain.QuizView{}, err
	}
	for i := range questions {
		if len(questions[i].Options) == 0 {
			a.log.WithField("question_id", questions[i].ID).Debug("question has no options")
			continue
		}
		if err := Shuffle(src, questions[i].Options); err != nil {
			return domain.QuizView{}, err
		}
	}

	return domain.QuizView{
		ID:          meta.ID,
		Title:       meta.Title,
		Category:    meta.Category,
		Difficulty:  meta.Difficulty,
		Description: meta.Description,
		TimeLimit:   mode.TimeLimit(meta.TimeLimit, a.defaultTimeLimit),
		IsPublic:    meta.Active,
		Questions:   questions,
		Mode:        mode,
	}, nil
}

// DynamicMeta describes a quiz sampled from the standalone pool.
func DynamicMeta(mode domain.Mode, categoryID *string, count int) domain.QuizMeta {
	mode = domain.ParseMode(string(mode))
	catID := "all"
	if categoryID != nil && *categoryID != "" {
		catID = *categoryID
	}
	name := string(mode)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return domain.QuizMeta{
		ID:          domain.DynamicQuizID,
		Title:       fmt.Sprintf("Dynamic %s Quiz", name),
		Category:    domain.Category{ID: catID, Name: "All Categories", Icon: "🎲"},
		Difficulty:  "medium",
		Description: fmt.Sprintf("A randomly generated quiz with %d questions", count),
		Active:      true,
	}
}

// assembleQuestion enumerates options in stored order with 1-based ids.
func assembleQuestion(q domain.Question) domain.AssembledQuestion {
	q = q.Normalize()
	options := make([]domain.AssembledOption, 0, len(q.Options))
	for idx, text := range q.Options {
		options = append(options, domain.AssembledOption{
			ID:        idx + 1,
			Text:      text,
			IsCorrect: text == q.Answer,
		})
	}
	return domain.AssembledQuestion{
		ID:          q.ID,
		Prompt:      q.Prompt,
		Type:        q.Type,
		Options:     options,
		Answer:      q.Answer,
		Explanation: q.Explanation,
	}
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

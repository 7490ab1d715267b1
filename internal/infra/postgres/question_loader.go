package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/domain"
)

const quizColumns = `q.id, q.title, q.difficulty, q.description, q.time_limit, q.is_public,
	coalesce(c.id, ''), coalesce(c.name, ''), coalesce(c.icon, '')`

const questionColumns = `id, question, type, options, answer, explanation`

// QuestionLoader reads quizzes and questions from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

func NewQuestionLoader(pool *pgxpool.Pool, log logrus.FieldLogger) *QuestionLoader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &QuestionLoader{pool: pool, log: log}
}

func (l *QuestionLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizMeta, error) {
	row := l.pool.QueryRow(ctx, `SELECT `+quizColumns+`
		FROM quizzes q LEFT JOIN categories c ON c.id = q.category_id
		WHERE q.id = $1`, quizID)
	meta, err := scanQuiz(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizMeta{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return domain.QuizMeta{}, fmt.Errorf("load quiz: %w", err)
	}
	return meta, nil
}

func (l *QuestionLoader) ListQuizzes(ctx context.Context, categoryID *string) ([]domain.QuizMeta, error) {
	query := `SELECT ` + quizColumns + `
		FROM quizzes q LEFT JOIN categories c ON c.id = q.category_id`
	var args []interface{}
	if categoryID != nil && *categoryID != "" {
		query += ` WHERE q.category_id = $1`
		args = append(args, *categoryID)
	}
	query += ` ORDER BY q.id`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizMeta
	for rows.Next() {
		meta, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		out = append(out, meta)
	}
	return out, rows.Err()
}

// FindByQuizID returns the quiz's questions in stored order.
func (l *QuestionLoader) FindByQuizID(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `SELECT `+questionColumns+`
		FROM questions WHERE quiz_id = $1 ORDER BY position, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()

	questions, err := l.scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		id := quizID
		questions[i].QuizID = &id
	}
	return questions, nil
}

// FindStandalonePool returns standalone questions matching the filter.
func (l *QuestionLoader) FindStandalonePool(ctx context.Context, filter domain.PoolFilter) ([]domain.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM standalone_questions`
	var args []interface{}
	if filter.CategoryID != nil && *filter.CategoryID != "" {
		query += ` WHERE category_id = $1`
		args = append(args, *filter.CategoryID)
	}
	query += ` ORDER BY id`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find standalone pool: %w", err)
	}
	defer rows.Close()
	return l.scanQuestions(rows)
}

func (l *QuestionLoader) scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var out []domain.Question
	for rows.Next() {
		var (
			q           domain.Question
			kind        string
			rawOptions  []byte
			explanation *string
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &kind, &rawOptions, &q.Answer, &explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(kind)
		if explanation != nil {
			q.Explanation = *explanation
		}
		options, err := DecodeOptions(rawOptions)
		if err != nil {
			l.log.WithError(err).WithField("question_id", q.ID).Warn("serving question without options")
		}
		q.Options = options
		out = append(out, q)
	}
	return out, rows.Err()
}

// DecodeOptions parses a stored options document. Anything other than a JSON array yields no
// options and domain.ErrMalformedOptions; non-string elements are rendered with %v.
func DecodeOptions(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedOptions, truncate(string(raw), 64))
	}
	options := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			options = append(options, v)
		case nil:
			options = append(options, "")
		default:
			options = append(options, fmt.Sprintf("%v", v))
		}
	}
	return options, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row rowScanner) (domain.QuizMeta, error) {
	var (
		meta        domain.QuizMeta
		difficulty  *string
		description *string
		timeLimit   *int32
	)
	err := row.Scan(&meta.ID, &meta.Title, &difficulty, &description, &timeLimit, &meta.Active,
		&meta.Category.ID, &meta.Category.Name, &meta.Category.Icon)
	if err != nil {
		return domain.QuizMeta{}, err
	}
	if difficulty != nil {
		meta.Difficulty = *difficulty
	}
	if description != nil {
		meta.Description = *description
	}
	if timeLimit != nil {
		limit := int(*timeLimit)
		meta.TimeLimit = &limit
	}
	return meta, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

package integration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
	pgstore "quiz-engine-service/internal/infra/postgres"
	pgmigrations "quiz-engine-service/internal/infra/postgres/migrations"
	infraredis "quiz-engine-service/internal/infra/redis"
)

func TestServeAndSubmitEndToEnd(t *testing.T) {
	const submissions = 8
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := migrateAndSeed(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := pgstore.NewQuestionLoader(pool, nil)
	questions := infraredis.NewQuestionCache(redisClient, loader, 5*time.Minute, nil)
	served := infraredis.NewServedQuizStore(redisClient, 5*time.Minute)
	service := app.NewQuizService(questions, served, pgstore.NewHistoryStore(db), app.Options{
		MaxAttemptRetries: submissions,
	})

	quiz, err := service.ServeQuiz(ctx, "u1", "quiz-1", domain.ModeStandard)
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	if len(quiz.View.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(quiz.View.Questions))
	}
	for _, q := range quiz.View.Questions {
		if q.ID == "q3" && len(q.Options) != 0 {
			t.Fatalf("malformed options should be served empty, got %+v", q.Options)
		}
	}

	var wg sync.WaitGroup
	attempts := make([]int, submissions)
	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := service.Submit(ctx, app.Submission{
				Token:          quiz.Token,
				UserID:         "u1",
				Answers:        correctAnswers(quiz.View),
				TotalQuestions: len(quiz.View.Questions),
			})
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			if res.Correct != 2 || res.Total != 3 || res.Score != 66 {
				t.Errorf("unexpected result %+v", res)
			}
			attempts[i] = res.AttemptNumber
		}(i)
	}
	wg.Wait()

	sort.Ints(attempts)
	for i, n := range attempts {
		if n != i+1 {
			t.Fatalf("expected attempt numbers 1..%d, got %v", submissions, attempts)
		}
	}

	dynamic, err := service.ServeDynamicQuiz(ctx, "u2", domain.PoolFilter{}, 2, domain.ModeRapidFire)
	if err != nil {
		t.Fatalf("serve dynamic: %v", err)
	}
	if _, err := service.Submit(ctx, app.Submission{Token: dynamic.Token, UserID: "u2", Answers: correctAnswers(dynamic.View)}); err != nil {
		t.Fatalf("submit dynamic: %v", err)
	}

	lb, err := service.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u1" || lb.Entries[0].Points != 66*submissions {
		t.Fatalf("unexpected leaderboard %+v", lb.Entries)
	}

	history, err := service.History(ctx, "u2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].QuizID != domain.DynamicQuizID || history[0].Score != 100 {
		t.Fatalf("unexpected history %+v", history)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func migrateAndSeed(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []string{
		`INSERT INTO categories (id, name, icon) VALUES ('math', 'Math', '')`,
		`INSERT INTO quizzes (id, title, category_id, difficulty) VALUES ('quiz-1', 'Arithmetic', 'math', 'easy')`,
		`INSERT INTO questions (id, quiz_id, position, question, options, answer) VALUES
			('q1', 'quiz-1', 1, 'What is 2 + 2?', '["3","4","5"]', '4'),
			('q2', 'quiz-1', 2, 'What is 3 * 3?', '["6","9","12"]', '9'),
			('q3', 'quiz-1', 3, 'Broken options', '{"a":"1"}', '1')`,
		`INSERT INTO standalone_questions (id, category_id, question, options, answer) VALUES
			('s1', NULL, '1 + 1?', '["1","2"]', '2'),
			('s2', 'math', '5 - 3?', '["2","3"]', '2'),
			('s3', NULL, '2 * 2?', '["4","8"]', '4')`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed %q: %v", strings.SplitN(stmt, "(", 2)[0], err)
		}
	}
	return db
}

// correctAnswers picks the served position of every correct option.
func correctAnswers(view domain.QuizView) []domain.SubmittedAnswer {
	var answers []domain.SubmittedAnswer
	for _, q := range view.Questions {
		for i, opt := range q.Options {
			if opt.IsCorrect {
				pos := i + 1
				answers = append(answers, domain.SubmittedAnswer{QuestionID: q.ID, Position: &pos})
			}
		}
	}
	return answers
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

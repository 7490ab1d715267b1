package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/config"
	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
	"quiz-engine-service/internal/infra/memory"
	pgstore "quiz-engine-service/internal/infra/postgres"
	rediscache "quiz-engine-service/internal/infra/redis"
	"quiz-engine-service/internal/logger"
	"quiz-engine-service/internal/metrics"
	transport "quiz-engine-service/internal/transport/http"
)

const serviceName = "quiz-engine"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(serviceName, cfg.Log.Level, cfg.Log.Format)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var loader app.QuestionRepository = memory.NewStaticQuestions(sampleQuizzes())
	var history app.HistoryRepository = memory.NewHistoryStore()
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		if err := migrateDB(ctx, db, log); err != nil {
			return err
		}
		history = pgstore.NewHistoryStore(db)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewQuestionLoader(pool, log)
	} else {
		log.Warn("postgres not configured, serving sample quizzes with in-memory history")
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	servedTTL := config.TTLDuration(cfg.Quiz.ServedTTL, 2*time.Hour)
	if cfg.Redis.TTL != "" && cfg.Quiz.ServedTTL == "" {
		servedTTL = config.TTLDuration(cfg.Redis.TTL, servedTTL)
	}

	var questions app.QuestionRepository
	var served app.ServedQuizStore
	if redisClient != nil {
		questions = rediscache.NewQuestionCache(redisClient, loader, cacheTTL, log)
		served = rediscache.NewServedQuizStore(redisClient, servedTTL)
	} else {
		questions = memory.NewCachedQuestions(loader, cacheTTL)
		served = memory.NewServedQuizStore(servedTTL)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service := app.NewQuizService(questions, served, history, app.Options{
		Assembler: engine.NewAssembler(
			engine.WithLogger(log),
			engine.WithDefaultTimeLimit(cfg.Quiz.DefaultTimeLimit),
		),
		Logger:              log,
		Observer:            m,
		DefaultDynamicCount: cfg.Quiz.DefaultDynamicCount,
		MaxAttemptRetries:   cfg.Quiz.MaxAttemptRetries,
	})

	router := transport.NewRouter(service, transport.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		Logger:         log,
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuizzes seeds the in-memory repository when no database is configured.
func sampleQuizzes() (map[string]domain.QuizMeta, map[string][]domain.Question, []memory.StandaloneQuestion) {
	science := "science"
	quizzes := map[string]domain.QuizMeta{
		"quiz-1": {
			ID:          "quiz-1",
			Title:       "Arithmetic Warm-up",
			Category:    domain.Category{ID: "math", Name: "Math", Icon: "➗"},
			Difficulty:  "easy",
			Description: "A few quick sums",
			Active:      true,
		},
	}
	questions := map[string][]domain.Question{
		"quiz-1": {
			{ID: "q1", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, Answer: "4"},
			{ID: "q2", Prompt: "What is 7 * 6?", Options: []string{"36", "42", "48", "56"}, Answer: "42"},
			{ID: "q3", Prompt: "Is 17 prime?", Type: domain.TypeTrueFalse, Options: []string{"True", "False"}, Answer: "True"},
		},
	}
	standalone := []memory.StandaloneQuestion{
		{Question: domain.Question{ID: "s1", Prompt: "Capital of France?", Options: []string{"Paris", "London", "Berlin", "Madrid"}, Answer: "Paris"}},
		{Question: domain.Question{ID: "s2", Prompt: "Chemical symbol for gold?", Options: []string{"Ag", "Au", "Gd", "Go"}, Answer: "Au"}, CategoryID: &science},
		{Question: domain.Question{ID: "s3", Prompt: "Largest planet?", Options: []string{"Earth", "Saturn", "Jupiter", "Mars"}, Answer: "Jupiter"}, CategoryID: &science},
		{Question: domain.Question{ID: "s4", Prompt: "Water boils at 100C at sea level.", Type: domain.TypeTrueFalse, Options: []string{"True", "False"}, Answer: "True"}, CategoryID: &science},
		{Question: domain.Question{ID: "s5", Prompt: "Author of Hamlet?", Options: []string{"Marlowe", "Shakespeare", "Jonson"}, Answer: "Shakespeare"}},
	}
	return quizzes, questions, standalone
}

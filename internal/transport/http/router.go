package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/metrics"
)

// RouterConfig carries the optional collaborators of the HTTP surface.
type RouterConfig struct {
	CORSOrigins    []string
	Logger         logrus.FieldLogger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// NewRouter mounts the REST API, the websocket endpoint and the operational routes.
func NewRouter(service *app.QuizService, cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := NewHandler(service, cfg.Logger)
	ws := NewWSHandler(service, cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(instrument(cfg.Metrics))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", UserIDHeader},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/ws", ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Route("/quizzes", func(r chi.Router) {
			r.Get("/", h.ListQuizzes)
			r.Get("/dynamic", h.ServeDynamicQuiz)
			r.Post("/submit", h.Submit)
			r.Get("/{quizID}", h.ServeQuiz)
		})
		r.Get("/history", h.History)
		r.Get("/attempts/next", h.NextAttempt)
		r.Get("/leaderboard", h.Leaderboard)
	})
	return r
}

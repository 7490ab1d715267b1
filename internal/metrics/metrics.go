package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"quiz-engine-service/internal/domain"
)

const namespace = "quiz_engine"

// Metrics holds the service's Prometheus collectors. It implements app.Observer.
type Metrics struct {
	QuizzesAssembled  *prometheus.CounterVec
	AssemblyFailures  *prometheus.CounterVec
	SubmissionsGraded *prometheus.CounterVec
	SubmissionScore   prometheus.Histogram
	AttemptConflicts  prometheus.Counter
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuizzesAssembled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quizzes_assembled_total",
				Help:      "Quizzes assembled and served",
			},
			[]string{"mode", "kind"},
		),
		AssemblyFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assembly_failures_total",
				Help:      "Quiz assembly failures by reason",
			},
			[]string{"reason"},
		),
		SubmissionsGraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_graded_total",
				Help:      "Graded and recorded submissions",
			},
			[]string{"kind"},
		),
		SubmissionScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_score",
				Help:      "Distribution of submission scores (0-100)",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		AttemptConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempt_conflicts_total",
				Help:      "Attempt inserts that lost a numbering race and were retried",
			},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) QuizAssembled(kind string, mode domain.Mode) {
	m.QuizzesAssembled.WithLabelValues(string(mode), kind).Inc()
}

func (m *Metrics) AssemblyFailed(reason string) {
	m.AssemblyFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) SubmissionGraded(kind string, score int) {
	m.SubmissionsGraded.WithLabelValues(kind).Inc()
	m.SubmissionScore.Observe(float64(score))
}

func (m *Metrics) AttemptConflict() {
	m.AttemptConflicts.Inc()
}

// ObserveRequest records one HTTP request against its route pattern.
func (m *Metrics) ObserveRequest(route string, status int, elapsed time.Duration) {
	m.RequestCounter.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SessionsStarted counts exam sessions minted by StartExam.
	SessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_sessions_started_total",
		Help: "Total number of exam sessions started",
	})

	// Submissions counts submission attempts by outcome.
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Total number of exam submissions by outcome",
		},
		[]string{"outcome"},
	)

	// SubmissionScore observes graded scores (0-100).
	SubmissionScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "exam_submission_score",
		Help:    "Distribution of graded submission scores",
		Buckets: prometheus.LinearBuckets(0, 10, 11),
	})

	// Evictions counts entries removed by the sweeper, per store.
	Evictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_store_evictions_total",
			Help: "Entries evicted from the in-memory exam stores",
		},
		[]string{"store"},
	)

	// ResultsPersisted counts results written to PostgreSQL by the result worker.
	ResultsPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "exam_results_persisted_total",
		Help: "Graded results persisted to the database",
	})

	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"method", "endpoint"},
	)
)

// Outcome labels for Submissions.
const (
	OutcomeGraded           = "graded"
	OutcomeInvalidSession   = "invalid_session"
	OutcomeAlreadySubmitted = "already_submitted"
	OutcomeMalformed        = "malformed"
	OutcomeUnknownExam      = "unknown_exam"
)

// Register adds every collector to reg. Call once at startup.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SessionsStarted,
		Submissions,
		SubmissionScore,
		Evictions,
		ResultsPersisted,
		RequestCounter,
		RequestDuration,
	)
}

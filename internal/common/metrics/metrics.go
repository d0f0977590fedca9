// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	QuestionsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "questions_resolved_total",
			Help: "Total number of questions resolved, by SQL source",
		},
		[]string{"source"},
	)

	TemplateMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_matches_total",
			Help: "Total number of catalog template matches, by rule",
		},
		[]string{"rule"},
	)

	SynthesisAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthesis_attempts_per_question",
			Help:    "Number of LLM synthesis attempts used per question",
			Buckets: []float64{1, 2, 3},
		},
		[]string{"outcome"},
	)

	SQLExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sql_execution_duration_seconds",
			Help: "Duration of SQL statement execution in seconds",
		},
		[]string{"source"},
	)

	ResultCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "result_cache_hits_total",
			Help: "Result cache lookups, by outcome",
		},
		[]string{"outcome"},
	)
)

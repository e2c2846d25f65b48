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
)

var (
	// MessagesTotal counts inbound user messages by the path the dialogue took:
	// pending, occasion, offer, guidance, complete.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "styling_messages_total",
			Help: "Inbound messages by dialogue outcome",
		},
		[]string{"outcome"},
	)

	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "styling_candidates_total",
			Help: "Ranked match candidates by confidence tier",
		},
		[]string{"tier"},
	)

	// SlotFillsTotal source is "message" or "selection".
	SlotFillsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "styling_slot_fills_total",
			Help: "Slots filled by category and source",
		},
		[]string{"category", "source"},
	)

	SessionsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "styling_sessions_completed_total",
			Help: "Conversations that reached the complete state",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "styling_sessions_active",
			Help: "Dialogue sessions held in memory",
		},
	)

	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "styling_handoffs_total",
			Help: "Recommendation handoffs by transport and status",
		},
		[]string{"transport", "status"},
	)
)

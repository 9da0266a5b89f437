package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversationTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_conversation_turns_total",
			Help: "Total conversational turns processed, by intent",
		},
		[]string{"intent"},
	)

	CatalogSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_catalog_searches_total",
			Help: "Catalog searches triggered by the orchestrator",
		},
		[]string{"outcome"},
	)

	FallbackLookups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_fallback_lookups_total",
			Help: "External marketplace fallback lookups",
		},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "chat_llm_request_duration_seconds",
			Help: "Duration of LLM chat-completion requests",
		},
		[]string{"model", "status"},
	)

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
)

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

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"pipeline", "status"},
	)

	PipelineStepsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_steps_executed_total",
			Help: "Total number of pipeline steps executed",
		},
		[]string{"pipeline", "activity"},
	)

	PipelineStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_step_duration_seconds",
			Help: "Duration of individual pipeline step execution in seconds",
		},
		[]string{"pipeline", "activity"},
	)

	CompositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_compositions_total",
			Help: "Total number of workflow composition requests by status",
		},
		[]string{"status"},
	)
)

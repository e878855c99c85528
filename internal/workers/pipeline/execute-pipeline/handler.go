// internal/workers/pipeline/execute-pipeline/handler.go
package executepipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/metrics"
	"pipeline-composer/internal/history"
	"pipeline-composer/internal/pipeline"
	"pipeline-composer/internal/runstore"
)

const (
	TaskType = "execute-pipeline"
)

// Runner executes a named pipeline definition.
type Runner interface {
	Run(ctx context.Context, name, runID string, workflowInput map[string]interface{}) (*pipeline.Result, error)
}

// RunStatusStore tracks live run status, typically Redis.
type RunStatusStore interface {
	Put(ctx context.Context, record runstore.RunRecord) error
}

// HistorySink persists finished runs for audit.
type HistorySink interface {
	Insert(ctx context.Context, rec history.Record) error
}

// RunIndexer mirrors run summaries into the search index.
type RunIndexer interface {
	Index(ctx context.Context, rec history.Record) error
}

// FailureNotifier alerts operators about failed runs.
type FailureNotifier interface {
	RunFailed(ctx context.Context, pipelineName, runID, reason string)
}

type Handler struct {
	config   *Config
	runner   Runner
	runs     RunStatusStore
	history  HistorySink
	indexer  RunIndexer
	notifier FailureNotifier
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	runner Runner,
	runs RunStatusStore,
	historySink HistorySink,
	indexer RunIndexer,
	notifier FailureNotifier,
	log logger.Logger,
) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		runner:   runner,
		runs:     runs,
		history:  historySink,
		indexer:  indexer,
		notifier: notifier,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errors.HandleJobError(context.Background(), client, job,
			errors.NewDefinitionInvalidError(fmt.Sprintf("parse input: %v", err)))
		return nil
	}
	if input.WorkflowName == "" {
		h.errors.HandleJobError(context.Background(), client, job,
			errors.NewDefinitionInvalidError("workflowName is required"))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errors.HandleJobError(ctx, client, job, err)
		return nil
	}

	h.completeJob(ctx, client, job, output)
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	runID := input.RunID
	if runID == "" {
		runID = fmt.Sprintf("%s-%s", input.WorkflowName, uuid.New().String())
	}

	h.trackRun(ctx, runstore.RunRecord{
		RunID:        runID,
		PipelineName: input.WorkflowName,
		Status:       pipeline.StatusRunning,
	})

	startedAt := time.Now().UTC()
	result, runErr := h.runner.Run(ctx, input.WorkflowName, runID, input.WorkflowInput)
	finishedAt := time.Now().UTC()

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(finishedAt.Sub(startedAt).Seconds())

	if result != nil {
		h.trackRun(ctx, runstore.RunRecord{
			RunID:          runID,
			PipelineName:   result.PipelineName,
			Status:         result.Status,
			StepsCompleted: result.StepsCompleted,
			Error:          result.Error,
		})
		h.recordHistory(ctx, result, startedAt, finishedAt)
	}

	if runErr != nil {
		if h.notifier != nil {
			h.notifier.RunFailed(ctx, input.WorkflowName, runID, runErr.Error())
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(runErr))).Inc()
		return nil, runErr
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()

	return &Output{
		RunID:          runID,
		WorkflowName:   result.PipelineName,
		Status:         result.Status,
		StepsCompleted: result.StepsCompleted,
		FinalResult:    result.FinalResult,
		Outputs:        result.Outputs,
	}, nil
}

// trackRun updates the live status record. Failures here never fail the
// run itself.
func (h *Handler) trackRun(ctx context.Context, record runstore.RunRecord) {
	if h.runs == nil {
		return
	}
	if err := h.runs.Put(ctx, record); err != nil {
		h.logger.Warn("run status not stored", map[string]interface{}{
			"run_id": record.RunID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) recordHistory(ctx context.Context, result *pipeline.Result, startedAt, finishedAt time.Time) {
	rec := history.RecordFromResult(result, startedAt, finishedAt)

	if h.history != nil {
		if err := h.history.Insert(ctx, rec); err != nil {
			h.logger.Error("run history not persisted", map[string]interface{}{
				"run_id": rec.RunID,
				"error":  err.Error(),
			})
		}
	}

	if h.indexer != nil {
		if err := h.indexer.Index(ctx, rec); err != nil {
			h.logger.Warn("run not indexed", map[string]interface{}{
				"run_id": rec.RunID,
				"error":  err.Error(),
			})
		}
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

// Execute exposes the core logic for direct invocation in tests.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

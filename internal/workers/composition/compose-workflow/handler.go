// internal/workers/composition/compose-workflow/handler.go
package composeworkflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/metrics"
	"pipeline-composer/internal/composer"
)

const (
	TaskType = "compose-workflow"
)

// Composer runs the composition pipeline for one request.
type Composer interface {
	Compose(ctx context.Context, req composer.Request) (*composer.CompositionResult, error)
}

type Handler struct {
	config   *Config
	composer Composer
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(config *Config, comp Composer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		composer: comp,
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

// execute runs the composition. An incomplete composition completes the
// job with status INCOMPLETE and the missing activity ids rather than
// failing it: the process model decides what to do about the gap.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Requirements) == 0 {
		return nil, errors.NewDefinitionInvalidError("requirements are required")
	}

	result, err := h.composer.Compose(ctx, composer.Request{
		WorkflowName:        input.WorkflowName,
		WorkflowDescription: input.WorkflowDescription,
		Requirements:        input.Requirements,
	})
	if err != nil && (result == nil || result.Status != composer.StatusIncomplete) {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	output := &Output{
		WorkflowName: result.WorkflowName,
		Status:       result.Status,
	}
	if result.Analysis != nil {
		output.ActivityIDs = result.Analysis.ActivityIDs
	}
	if result.Validation != nil {
		output.Missing = result.Validation.Missing
	}
	if result.Definition != nil {
		output.StepCount = len(result.Definition.Steps)
		output.DefinitionPath = result.DefinitionPath
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	return output, nil
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

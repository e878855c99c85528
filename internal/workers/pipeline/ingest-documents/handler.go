// internal/workers/pipeline/ingest-documents/handler.go
package ingestdocuments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/metrics"
	"pipeline-composer/internal/pipeline"
)

const (
	TaskType = "ingest-documents"
)

// Runner executes a named pipeline definition.
type Runner interface {
	Run(ctx context.Context, name, runID string, workflowInput map[string]interface{}) (*pipeline.Result, error)
}

type Handler struct {
	config *Config
	runner Runner
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		runner: runner,
		errors: errors.NewErrorHandler(log),
		logger: log,
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

// execute runs the fixed ingestion pipeline over the submitted documents.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Documents) == 0 {
		return nil, errors.NewDefinitionInvalidError("no documents submitted for ingestion")
	}
	for i, doc := range input.Documents {
		if doc.Text == "" {
			return nil, errors.NewDefinitionInvalidError(
				fmt.Sprintf("document %d has no text", i))
		}
	}

	runID := fmt.Sprintf("doc-processing-%s", uuid.New().String())

	workflowInput := map[string]interface{}{
		"documents": documentsAsInput(input.Documents),
	}
	if input.Collection != "" {
		workflowInput["collection"] = input.Collection
	}

	result, err := h.runner.Run(ctx, h.config.Definition, runID, workflowInput)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
		return nil, err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()

	return &Output{
		RunID:          runID,
		WorkflowName:   result.PipelineName,
		Status:         result.Status,
		StepsCompleted: result.StepsCompleted,
		DocumentCount:  len(input.Documents),
	}, nil
}

// documentsAsInput converts the typed records into the generic shape the
// pipeline transforms operate on.
func documentsAsInput(docs []Document) []interface{} {
	out := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		entry := map[string]interface{}{
			"id":   doc.ID,
			"text": doc.Text,
		}
		if len(doc.Metadata) > 0 {
			entry["metadata"] = doc.Metadata
		}
		out = append(out, entry)
	}
	return out
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

// internal/pipeline/executor.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/metrics"
	"pipeline-composer/internal/definition"
	"pipeline-composer/internal/invoke"
	"pipeline-composer/internal/registry"
	"pipeline-composer/internal/transform"
)

// Executor runs pipeline definitions step by step. Each step's input is
// the previous step's output; the first step receives the workflow input.
type Executor struct {
	registry          *registry.Registry
	store             *definition.Store
	invoker           invoke.Invoker
	defaultCollection string
	logger            logger.Logger
}

func NewExecutor(
	reg *registry.Registry,
	store *definition.Store,
	invoker invoke.Invoker,
	defaultCollection string,
	log logger.Logger,
) *Executor {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Executor{
		registry:          reg,
		store:             store,
		invoker:           invoker,
		defaultCollection: defaultCollection,
		logger:            log,
	}
}

// Run looks up a definition by name and executes it.
func (e *Executor) Run(ctx context.Context, name, runID string, workflowInput map[string]interface{}) (*Result, error) {
	def, err := e.store.Get(name)
	if err != nil {
		return nil, err
	}
	return e.RunDefinition(ctx, def, runID, workflowInput)
}

// RunDefinition executes an already-resolved definition. Execution stops
// at the first failing step; completed step results stay in the returned
// Result for diagnostics.
func (e *Executor) RunDefinition(ctx context.Context, def definition.Definition, runID string, workflowInput map[string]interface{}) (*Result, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		PipelineName: def.Name,
		RunID:        runID,
		Status:       StatusRunning,
		StepOutcomes: make([]StepOutcome, 0, len(def.Steps)),
	}

	e.logger.Info("pipeline run started", map[string]interface{}{
		"pipeline": def.Name,
		"run_id":   runID,
		"steps":    len(def.Steps),
	})

	execCtx := NewExecutionContext(workflowInput)
	var currentData interface{} = workflowInput

	for i, step := range def.Steps {
		outcome, stepResult, err := e.runStep(ctx, def, i, step, currentData, workflowInput, execCtx)
		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			result.Outputs = execCtx.Snapshot()
			metrics.PipelineRunsTotal.WithLabelValues(def.Name, result.Status).Inc()
			e.logger.Error("pipeline run failed", map[string]interface{}{
				"pipeline": def.Name,
				"run_id":   runID,
				"step":     i,
				"activity": step.ActivityID,
				"error":    err.Error(),
			})
			return result, err
		}

		result.StepOutcomes = append(result.StepOutcomes, outcome)
		result.StepsCompleted++
		result.FinalResult = stepResult
		currentData = stepResult
	}

	result.Status = StatusCompleted
	result.Outputs = execCtx.Snapshot()
	metrics.PipelineRunsTotal.WithLabelValues(def.Name, result.Status).Inc()

	e.logger.Info("pipeline run completed", map[string]interface{}{
		"pipeline": def.Name,
		"run_id":   runID,
		"steps":    result.StepsCompleted,
	})

	return result, nil
}

func (e *Executor) runStep(
	ctx context.Context,
	def definition.Definition,
	index int,
	step definition.Step,
	currentData interface{},
	workflowInput map[string]interface{},
	execCtx *ExecutionContext,
) (StepOutcome, interface{}, error) {
	wrap := func(err error) error {
		return fmt.Errorf("step %d (%s): %w", index, step.ActivityID, err)
	}

	meta, err := e.registry.Get(step.ActivityID)
	if err != nil {
		return StepOutcome{}, nil, wrap(err)
	}

	fn := transform.Get(step.Transform)
	args, err := fn(currentData, step, workflowInput, e.defaultCollection)
	if err != nil {
		return StepOutcome{}, nil, wrap(err)
	}

	started := time.Now()
	stepResult, err := e.invoker.Invoke(ctx, invoke.Reference{
		ActivityID: meta.ID(),
		Activity:   meta.Activity,
		TaskQueue:  meta.TaskQueue,
	}, args, time.Duration(meta.TimeoutSeconds)*time.Second, invoke.RetryPolicy{
		InitialInterval: invoke.DefaultRetryPolicy.InitialInterval,
		MaximumInterval: invoke.DefaultRetryPolicy.MaximumInterval,
		MaximumAttempts: meta.RetryAttempts,
	})
	elapsed := time.Since(started)

	metrics.PipelineStepsExecuted.WithLabelValues(def.Name, step.ActivityID).Inc()
	metrics.PipelineStepDuration.WithLabelValues(def.Name, step.ActivityID).Observe(elapsed.Seconds())

	if err != nil {
		return StepOutcome{}, nil, wrap(err)
	}

	if err := execCtx.Set(step.ResultKey, stepResult); err != nil {
		return StepOutcome{}, nil, wrap(err)
	}

	e.logger.Debug("pipeline step completed", map[string]interface{}{
		"pipeline":   def.Name,
		"step":       index,
		"activity":   step.ActivityID,
		"result_key": step.ResultKey,
		"duration":   elapsed.String(),
	})

	return StepOutcome{
		Index:      index,
		ActivityID: step.ActivityID,
		ResultKey:  step.ResultKey,
		Transform:  step.Transform,
		DurationMS: elapsed.Milliseconds(),
		Result:     stepResult,
	}, stepResult, nil
}

// internal/composer/composer.go
package composer

import (
	"context"

	"pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/common/metrics"
	"pipeline-composer/internal/definition"
)

const (
	defaultWorkflowName = "dynamic_workflow"
	generatedVersion    = "1.0.0"
)

// Composer turns natural-language-ish requirement lists into persisted
// pipeline definitions via discovery, analysis, validation and
// generation.
type Composer struct {
	source Introspector
	store  *definition.Store
	logger logger.Logger
}

func New(source Introspector, store *definition.Store, log logger.Logger) *Composer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Composer{
		source: source,
		store:  store,
		logger: log,
	}
}

// Compose runs all four stages. A definition is generated and persisted
// only when validation reports the analysis complete; an incomplete
// composition returns the missing activity ids instead of a partial
// workflow.
func (c *Composer) Compose(ctx context.Context, req Request) (*CompositionResult, error) {
	if req.WorkflowName == "" {
		req.WorkflowName = defaultWorkflowName
	}

	result := &CompositionResult{WorkflowName: req.WorkflowName}

	c.logger.Info("composition started", map[string]interface{}{
		"workflow":     req.WorkflowName,
		"requirements": len(req.Requirements),
	})

	result.Discovery = discover(c.source)
	if len(result.Discovery.Activities) == 0 {
		result.Status = StatusFailed
		err := errors.NewCompositionStageFailedError("discovery", req.WorkflowName,
			errors.NewDefinitionInvalidError("no activities available in the registry"))
		result.Error = err.Error()
		metrics.CompositionsTotal.WithLabelValues(result.Status).Inc()
		return result, err
	}

	result.Analysis = analyze(req)
	if len(result.Analysis.ActivityIDs) == 0 {
		result.Status = StatusFailed
		err := errors.NewCompositionStageFailedError("analysis", req.WorkflowName,
			errors.NewDefinitionInvalidError("no requirements matched a known activity"))
		result.Error = err.Error()
		metrics.CompositionsTotal.WithLabelValues(result.Status).Inc()
		return result, err
	}

	result.Validation = validate(result.Analysis, result.Discovery)
	if !result.Validation.IsComplete {
		result.Status = StatusIncomplete
		err := errors.NewIncompleteCompositionError(req.WorkflowName, result.Validation.Missing)
		result.Error = err.Error()
		metrics.CompositionsTotal.WithLabelValues(result.Status).Inc()
		c.logger.Warn("composition incomplete", map[string]interface{}{
			"workflow": req.WorkflowName,
			"missing":  result.Validation.Missing,
		})
		return result, err
	}

	def := generate(req, result.Analysis, result.Discovery)
	path, err := c.store.Save(def)
	if err != nil {
		result.Status = StatusFailed
		wrapped := errors.NewCompositionStageFailedError("generation", req.WorkflowName, err)
		result.Error = wrapped.Error()
		metrics.CompositionsTotal.WithLabelValues(result.Status).Inc()
		return result, wrapped
	}

	result.Status = StatusComplete
	result.Definition = &def
	result.DefinitionPath = path
	metrics.CompositionsTotal.WithLabelValues(result.Status).Inc()

	c.logger.Info("composition completed", map[string]interface{}{
		"workflow": req.WorkflowName,
		"steps":    len(def.Steps),
		"path":     path,
	})

	return result, nil
}

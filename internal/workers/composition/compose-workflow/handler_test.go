package composeworkflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/composer"
	"pipeline-composer/internal/definition"
)

type fakeComposer struct {
	result *composer.CompositionResult
	err    error
	gotReq composer.Request
}

func (f *fakeComposer) Compose(ctx context.Context, req composer.Request) (*composer.CompositionResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func newTestHandler(t *testing.T, comp Composer) *Handler {
	t.Helper()
	return NewHandler(&Config{Timeout: time.Minute}, comp, logger.NewTestLogger(t))
}

func TestExecuteComplete(t *testing.T) {
	def := definition.Definition{
		Name: "support_triage",
		Steps: []definition.Step{
			{ActivityID: "utility_service.validate_inputs_activity", ResultKey: "validate_inputs_result"},
			{ActivityID: "utility_service.format_response_activity", ResultKey: "format_response_result"},
		},
	}
	comp := &fakeComposer{result: &composer.CompositionResult{
		WorkflowName: "support_triage",
		Status:       composer.StatusComplete,
		Analysis: &composer.AnalysisResult{
			ActivityIDs: []string{
				"utility_service.validate_inputs_activity",
				"utility_service.format_response_activity",
			},
			Method: "keyword_based",
		},
		Validation:     &composer.ValidationResult{IsComplete: true},
		Definition:     &def,
		DefinitionPath: "/tmp/support_triage.yaml",
	}}
	h := newTestHandler(t, comp)

	output, err := h.Execute(context.Background(), &Input{
		WorkflowName: "support_triage",
		Requirements: []string{"validate input", "format response"},
	})
	require.NoError(t, err)

	assert.Equal(t, composer.StatusComplete, output.Status)
	assert.Equal(t, 2, output.StepCount)
	assert.Equal(t, "/tmp/support_triage.yaml", output.DefinitionPath)
	assert.Len(t, output.ActivityIDs, 2)
	assert.Equal(t, "support_triage", comp.gotReq.WorkflowName)
}

func TestExecuteIncompleteCompletesJob(t *testing.T) {
	missing := []string{"storage_service.store_results_activity"}
	comp := &fakeComposer{
		result: &composer.CompositionResult{
			WorkflowName: "needs_storage",
			Status:       composer.StatusIncomplete,
			Analysis:     &composer.AnalysisResult{ActivityIDs: missing},
			Validation:   &composer.ValidationResult{IsComplete: false, Missing: missing},
		},
		err: apperrors.NewIncompleteCompositionError("needs_storage", missing),
	}
	h := newTestHandler(t, comp)

	output, err := h.Execute(context.Background(), &Input{
		WorkflowName: "needs_storage",
		Requirements: []string{"store results"},
	})
	require.NoError(t, err)

	assert.Equal(t, composer.StatusIncomplete, output.Status)
	assert.Equal(t, missing, output.Missing)
	assert.Zero(t, output.StepCount)
	assert.Empty(t, output.DefinitionPath)
}

func TestExecuteFailurePropagates(t *testing.T) {
	comp := &fakeComposer{
		result: &composer.CompositionResult{
			WorkflowName: "nonsense",
			Status:       composer.StatusFailed,
		},
		err: apperrors.NewCompositionStageFailedError("analysis", "nonsense", assert.AnError),
	}
	h := newTestHandler(t, comp)

	_, err := h.Execute(context.Background(), &Input{
		WorkflowName: "nonsense",
		Requirements: []string{"juggle"},
	})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeCompositionStageFailed, stdErr.Code)
}

func TestExecuteRequiresRequirements(t *testing.T) {
	h := newTestHandler(t, &fakeComposer{})

	_, err := h.Execute(context.Background(), &Input{WorkflowName: "w"})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
}

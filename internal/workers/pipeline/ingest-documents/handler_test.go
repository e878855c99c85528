package ingestdocuments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/pipeline"
)

type fakeRunner struct {
	result   *pipeline.Result
	err      error
	gotName  string
	gotRunID string
	gotInput map[string]interface{}
}

func (f *fakeRunner) Run(ctx context.Context, name, runID string, input map[string]interface{}) (*pipeline.Result, error) {
	f.gotName = name
	f.gotRunID = runID
	f.gotInput = input
	return f.result, f.err
}

func newTestHandler(t *testing.T, runner Runner) *Handler {
	t.Helper()
	return NewHandler(&Config{
		Timeout:    time.Minute,
		Definition: "document_processing",
	}, runner, logger.NewTestLogger(t))
}

func TestExecuteRunsIngestionPipeline(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		PipelineName:   "document_processing",
		Status:         pipeline.StatusCompleted,
		StepsCompleted: 3,
	}}
	h := newTestHandler(t, runner)

	docs := []Document{
		{ID: "d1", Text: "first", Metadata: map[string]interface{}{"source": "upload"}},
		{ID: "d2", Text: "second"},
	}
	output, err := h.Execute(context.Background(), &Input{Documents: docs})
	require.NoError(t, err)

	assert.Equal(t, "document_processing", runner.gotName)
	assert.True(t, strings.HasPrefix(output.RunID, "doc-processing-"))
	assert.Equal(t, output.RunID, runner.gotRunID)
	assert.Equal(t, 2, output.DocumentCount)
	assert.Equal(t, pipeline.StatusCompleted, output.Status)

	// Documents flow through as the workflow input in generic shape.
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": "d1", "text": "first", "metadata": map[string]interface{}{"source": "upload"}},
		map[string]interface{}{"id": "d2", "text": "second"},
	}, runner.gotInput["documents"])
	assert.NotContains(t, runner.gotInput, "collection")
}

func TestExecutePassesCollection(t *testing.T) {
	runner := &fakeRunner{result: &pipeline.Result{
		PipelineName: "document_processing",
		Status:       pipeline.StatusCompleted,
	}}
	h := newTestHandler(t, runner)

	_, err := h.Execute(context.Background(), &Input{
		Documents:  []Document{{Text: "doc"}},
		Collection: "knowledge_base",
	})
	require.NoError(t, err)
	assert.Equal(t, "knowledge_base", runner.gotInput["collection"])
}

func TestExecuteRejectsEmptyDocuments(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestHandler(t, runner)

	_, err := h.Execute(context.Background(), &Input{})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
	assert.Empty(t, runner.gotName)
}

func TestExecuteRejectsDocumentWithoutText(t *testing.T) {
	runner := &fakeRunner{}
	h := newTestHandler(t, runner)

	_, err := h.Execute(context.Background(), &Input{Documents: []Document{
		{ID: "d1", Text: "ok"},
		{ID: "d2"},
	}})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
	assert.Contains(t, stdErr.Details, "document 1")
	assert.Empty(t, runner.gotName)
}

func TestExecutePropagatesRunFailure(t *testing.T) {
	runner := &fakeRunner{err: apperrors.NewActivityInvocationError("svc.act", assert.AnError, true)}
	h := newTestHandler(t, runner)

	_, err := h.Execute(context.Background(), &Input{Documents: []Document{{Text: "doc"}}})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeActivityInvocationFailed, stdErr.Code)
}

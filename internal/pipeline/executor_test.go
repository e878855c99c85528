package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pipeline-composer/internal/common/errors"
	"pipeline-composer/internal/definition"
	"pipeline-composer/internal/invoke"
	"pipeline-composer/internal/registry"
	"pipeline-composer/pkg/catalog"
)

type recordedCall struct {
	ref  invoke.Reference
	args []interface{}
}

// scriptedInvoker returns canned results per activity id and records
// every call in order.
type scriptedInvoker struct {
	results map[string]interface{}
	errs    map[string]error
	calls   []recordedCall
}

func (s *scriptedInvoker) Invoke(ctx context.Context, ref invoke.Reference, args []interface{}, timeout time.Duration, policy invoke.RetryPolicy) (interface{}, error) {
	s.calls = append(s.calls, recordedCall{ref: ref, args: args})
	if err, ok := s.errs[ref.ActivityID]; ok {
		return nil, err
	}
	return s.results[ref.ActivityID], nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	require.NoError(t, reg.InitFromDocument(&catalog.Document{
		Services: map[string]catalog.Service{
			"processor_service": {
				Activities: map[string]catalog.Activity{
					"chunk_documents_activity": {},
				},
			},
			"embedding_service": {
				Activities: map[string]catalog.Activity{
					"generate_embeddings_activity": {},
				},
			},
			"storage_service": {
				TaskQueue: "storage-queue",
				Activities: map[string]catalog.Activity{
					"store_results_activity": {},
				},
			},
		},
	}))
	return reg
}

func ingestionDefinition() definition.Definition {
	return definition.Definition{
		Name: "document_processing",
		Steps: []definition.Step{
			{
				ActivityID: "processor_service.chunk_documents_activity",
				ResultKey:  "chunk_documents_result",
				Transform:  "documents",
			},
			{
				ActivityID: "embedding_service.generate_embeddings_activity",
				ResultKey:  "generate_embeddings_result",
				Transform:  "passthrough",
			},
			{
				ActivityID: "storage_service.store_results_activity",
				ResultKey:  "store_results_result",
				Transform:  "passthrough",
			},
		},
	}
}

func newTestExecutor(t *testing.T, inv invoke.Invoker) *Executor {
	t.Helper()
	store := definition.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Put(ingestionDefinition()))
	return NewExecutor(testRegistry(t), store, inv, "document_chunks", nil)
}

func TestRunExecutesStepsInOrder(t *testing.T) {
	chunks := []interface{}{"chunk1", "chunk2"}
	inv := &scriptedInvoker{results: map[string]interface{}{
		"processor_service.chunk_documents_activity":     chunks,
		"embedding_service.generate_embeddings_activity": []interface{}{"vec1", "vec2"},
		"storage_service.store_results_activity":         map[string]interface{}{"stored": float64(2)},
	}}
	exec := newTestExecutor(t, inv)

	input := map[string]interface{}{
		"documents": []interface{}{map[string]interface{}{"text": "hello"}},
	}
	result, err := exec.Run(context.Background(), "document_processing", "doc-processing-123", input)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 3, result.StepsCompleted)
	assert.Equal(t, "doc-processing-123", result.RunID)
	assert.Equal(t, map[string]interface{}{"stored": float64(2)}, result.FinalResult)

	require.Len(t, inv.calls, 3)
	assert.Equal(t, "processor_service.chunk_documents_activity", inv.calls[0].ref.ActivityID)
	assert.Equal(t, "embedding_service.generate_embeddings_activity", inv.calls[1].ref.ActivityID)
	assert.Equal(t, "storage_service.store_results_activity", inv.calls[2].ref.ActivityID)

	// Queue defaults and explicit queues resolve from the registry.
	assert.Equal(t, "processor_service-queue", inv.calls[0].ref.TaskQueue)
	assert.Equal(t, "storage-queue", inv.calls[2].ref.TaskQueue)

	// The documents transform unwraps the input map for the first step.
	assert.Equal(t, []interface{}{input["documents"]}, inv.calls[0].args)

	// Each later step receives the previous step's result.
	assert.Equal(t, chunks, inv.calls[1].args)

	// Every step result lands in the outputs under its result key.
	assert.Equal(t, chunks, result.Outputs["chunk_documents_result"])
	assert.Contains(t, result.Outputs, "generate_embeddings_result")
	assert.Contains(t, result.Outputs, "store_results_result")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	inv := &scriptedInvoker{
		results: map[string]interface{}{
			"processor_service.chunk_documents_activity": []interface{}{"chunk1"},
		},
		errs: map[string]error{
			"embedding_service.generate_embeddings_activity": apperrors.NewActivityInvocationError(
				"embedding_service.generate_embeddings_activity", assert.AnError, false),
		},
	}
	exec := newTestExecutor(t, inv)

	result, err := exec.Run(context.Background(), "document_processing", "run-1", map[string]interface{}{
		"documents": []interface{}{"doc"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 (embedding_service.generate_embeddings_activity)")

	// The third step never runs.
	require.Len(t, inv.calls, 2)

	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, 1, result.StepsCompleted)
	assert.Contains(t, result.Outputs, "chunk_documents_result")
	assert.NotContains(t, result.Outputs, "generate_embeddings_result")
}

func TestRunUnknownActivity(t *testing.T) {
	inv := &scriptedInvoker{}
	store := definition.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Put(definition.Definition{
		Name: "broken",
		Steps: []definition.Step{
			{ActivityID: "ghost_service.missing_activity", ResultKey: "r"},
		},
	}))
	exec := NewExecutor(testRegistry(t), store, inv, "document_chunks", nil)

	_, err := exec.Run(context.Background(), "broken", "run-1", nil)
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnknownActivity, stdErr.Code)
	assert.Empty(t, inv.calls)
}

func TestRunUnknownDefinition(t *testing.T) {
	exec := newTestExecutor(t, &scriptedInvoker{})

	_, err := exec.Run(context.Background(), "ghost", "run-1", nil)
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionNotFound, stdErr.Code)
}

func TestRunResultKeyConflictWithInput(t *testing.T) {
	inv := &scriptedInvoker{results: map[string]interface{}{
		"processor_service.chunk_documents_activity": []interface{}{"chunk"},
	}}
	store := definition.NewStore(t.TempDir(), nil)
	require.NoError(t, store.Put(definition.Definition{
		Name: "clashing",
		Steps: []definition.Step{
			{
				ActivityID: "processor_service.chunk_documents_activity",
				ResultKey:  "documents",
				Transform:  "documents",
			},
		},
	}))
	exec := NewExecutor(testRegistry(t), store, inv, "document_chunks", nil)

	_, err := exec.Run(context.Background(), "clashing", "run-1", map[string]interface{}{
		"documents": []interface{}{"doc"},
	})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeResultKeyConflict, stdErr.Code)
}

func TestExecutionContextWriteOnce(t *testing.T) {
	execCtx := NewExecutionContext(map[string]interface{}{"input": 1})

	require.NoError(t, execCtx.Set("a", "first"))
	err := execCtx.Set("a", "second")
	require.Error(t, err)

	v, ok := execCtx.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", v)

	snap := execCtx.Snapshot()
	assert.Equal(t, 1, snap["input"])
	assert.Equal(t, "first", snap["a"])
}

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-composer/internal/common/config"
	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/composer"
	"pipeline-composer/internal/definition"
	"pipeline-composer/internal/invoke"
	"pipeline-composer/internal/pipeline"
	"pipeline-composer/internal/registry"
)

const repoRoot = "../.."

// scriptedInvoker stands in for the activity services so the full
// composition and execution path runs without external infrastructure.
type scriptedInvoker struct {
	results map[string]interface{}
	calls   []invoke.Reference
}

func (s *scriptedInvoker) Invoke(ctx context.Context, ref invoke.Reference, args []interface{}, timeout time.Duration, policy invoke.RetryPolicy) (interface{}, error) {
	s.calls = append(s.calls, ref)
	return s.results[ref.ActivityID], nil
}

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	return cfg
}

func loadRegistry(t *testing.T, cfg *config.Config) *registry.Registry {
	t.Helper()
	reg := registry.New(logger.NewTestLogger(t))
	require.NoError(t, reg.InitFromFile(filepath.Join(repoRoot, cfg.Registry.Path)))
	return reg
}

func TestConfigAndCatalogLoad(t *testing.T) {
	cfg := loadConfig(t)

	assert.Equal(t, "document_processing", cfg.Pipeline.IngestDefinition)
	assert.NotEmpty(t, cfg.Services)

	reg := loadRegistry(t, cfg)
	assert.True(t, reg.Initialized())
	assert.GreaterOrEqual(t, reg.Len(), 7)

	// Every task queue referenced by the catalog must map to a service URL.
	doc := reg.Export()
	for _, name := range doc.ServiceNames() {
		for activity := range doc.Services[name].Activities {
			meta, err := reg.Get(name + "." + activity)
			require.NoError(t, err)
			assert.Contains(t, cfg.Services, meta.TaskQueue,
				"task queue %s has no service mapping", meta.TaskQueue)
		}
	}
}

func TestDocumentProcessingEndToEnd(t *testing.T) {
	cfg := loadConfig(t)
	reg := loadRegistry(t, cfg)

	store := definition.NewStore(t.TempDir(), logger.NewTestLogger(t))
	require.NoError(t, store.LoadDir(filepath.Join(repoRoot, cfg.Pipeline.DefinitionsDir)))

	chunks := []interface{}{
		[]interface{}{"chunk-1a", "chunk-1b"},
		[]interface{}{"chunk-2a"},
	}
	inv := &scriptedInvoker{results: map[string]interface{}{
		"processor_service.chunk_documents_activity":     chunks,
		"embedding_service.generate_embeddings_activity": chunks,
		"storage_service.store_results_activity":         map[string]interface{}{"stored": 3},
	}}

	executor := pipeline.NewExecutor(reg, store, inv, cfg.Pipeline.DefaultCollection, logger.NewTestLogger(t))

	result, err := executor.Run(context.Background(), cfg.Pipeline.IngestDefinition, "e2e-run-1", map[string]interface{}{
		"documents": []interface{}{
			map[string]interface{}{"id": "d1", "text": "first document"},
			map[string]interface{}{"id": "d2", "text": "second document"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusCompleted, result.Status)
	assert.Equal(t, 3, result.StepsCompleted)
	require.Len(t, inv.calls, 3)
	assert.Equal(t, "processor-queue", inv.calls[0].TaskQueue)
	assert.Equal(t, "embedding-queue", inv.calls[1].TaskQueue)
	assert.Equal(t, "storage-queue", inv.calls[2].TaskQueue)
	assert.Contains(t, result.Outputs, "store_outcome")
}

func TestComposeThenExecute(t *testing.T) {
	cfg := loadConfig(t)
	reg := loadRegistry(t, cfg)

	store := definition.NewStore(t.TempDir(), logger.NewTestLogger(t))
	comp := composer.New(reg, store, logger.NewTestLogger(t))

	result, err := comp.Compose(context.Background(), composer.Request{
		WorkflowName:        "search_and_store",
		WorkflowDescription: "search then persist the results",
		Requirements: []string{
			"search the knowledge base",
			"store the findings",
		},
	})
	require.NoError(t, err)
	require.Equal(t, composer.StatusComplete, result.Status)
	require.NotNil(t, result.Definition)
	assert.NotEmpty(t, result.DefinitionPath)

	inv := &scriptedInvoker{results: map[string]interface{}{
		"retriever_service.semantic_search_activity": []interface{}{"doc-1", "doc-2"},
		"storage_service.store_results_activity":     "ok",
	}}
	executor := pipeline.NewExecutor(reg, store, inv, cfg.Pipeline.DefaultCollection, logger.NewTestLogger(t))

	run, err := executor.Run(context.Background(), "search_and_store", "e2e-run-2", map[string]interface{}{
		"query": "pipeline composition",
	})
	require.NoError(t, err)

	assert.Equal(t, pipeline.StatusCompleted, run.Status)
	assert.Equal(t, 2, run.StepsCompleted)
	require.Len(t, inv.calls, 2)
	assert.Equal(t, "retriever_service.semantic_search_activity", inv.calls[0].ActivityID)
	assert.Equal(t, "storage_service.store_results_activity", inv.calls[1].ActivityID)
	assert.Contains(t, run.Outputs, "semantic_search_result")
	assert.Contains(t, run.Outputs, "store_results_result")
}

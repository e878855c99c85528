package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pipeline-composer/internal/common/errors"
	"pipeline-composer/pkg/catalog"
)

func testDocument() *catalog.Document {
	return &catalog.Document{
		Services: map[string]catalog.Service{
			"retriever_service": {
				TaskQueue: "retriever-queue",
				Activities: map[string]catalog.Activity{
					"semantic_search_activity": {
						Description:    "Search the vector store",
						TimeoutSeconds: 120,
						Parameters: []catalog.Parameter{
							{Name: "query", Type: "str", Required: true},
						},
					},
				},
			},
			"embedding_service": {
				Activities: map[string]catalog.Activity{
					"generate_embeddings_activity": {
						Description: "Generate embeddings",
					},
				},
			},
		},
	}
}

func TestRegisterAppliesDefaults(t *testing.T) {
	reg := New(nil)

	meta, err := reg.Register(ActivityMetadata{
		Service:  "utility_service",
		Activity: "format_response_activity",
	})
	require.NoError(t, err)

	assert.Equal(t, "utility_service-queue", meta.TaskQueue)
	assert.Equal(t, DefaultTimeoutSeconds, meta.TimeoutSeconds)
	assert.Equal(t, DefaultRetryAttempts, meta.RetryAttempts)
	assert.Equal(t, "utility_service.format_response_activity", meta.ID())
}

func TestRegisterRequiresNames(t *testing.T) {
	reg := New(nil)

	_, err := reg.Register(ActivityMetadata{Service: "svc"})
	assert.Error(t, err)

	_, err = reg.Register(ActivityMetadata{Activity: "act"})
	assert.Error(t, err)
}

func TestRegisterOverwrites(t *testing.T) {
	reg := New(nil)

	_, err := reg.Register(ActivityMetadata{
		Service:  "svc",
		Activity: "act",
		Description: "first",
	})
	require.NoError(t, err)

	_, err = reg.Register(ActivityMetadata{
		Service:  "svc",
		Activity: "act",
		Description: "second",
	})
	require.NoError(t, err)

	meta, err := reg.Get("svc.act")
	require.NoError(t, err)
	assert.Equal(t, "second", meta.Description)
	assert.Equal(t, 1, reg.Len())
}

func TestInitFromDocument(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.InitFromDocument(testDocument()))
	assert.True(t, reg.Initialized())
	assert.Equal(t, 2, reg.Len())

	meta, err := reg.Get("retriever_service.semantic_search_activity")
	require.NoError(t, err)
	assert.Equal(t, "retriever-queue", meta.TaskQueue)
	assert.Equal(t, 120, meta.TimeoutSeconds)
	assert.Equal(t, DefaultRetryAttempts, meta.RetryAttempts)

	// Service without an explicit queue falls back to the derived name.
	meta, err = reg.Get("embedding_service.generate_embeddings_activity")
	require.NoError(t, err)
	assert.Equal(t, "embedding_service-queue", meta.TaskQueue)
	assert.Equal(t, DefaultTimeoutSeconds, meta.TimeoutSeconds)
}

func TestInitFromDocumentIsIdempotent(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.InitFromDocument(testDocument()))

	// A second init with a different document is a no-op.
	require.NoError(t, reg.InitFromDocument(&catalog.Document{
		Services: map[string]catalog.Service{
			"other_service": {
				Activities: map[string]catalog.Activity{"x": {}},
			},
		},
	}))
	assert.Equal(t, 2, reg.Len())

	_, err := reg.Get("other_service.x")
	assert.Error(t, err)
}

func TestResetAllowsReload(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.InitFromDocument(testDocument()))

	reg.Reset()
	assert.False(t, reg.Initialized())
	assert.Equal(t, 0, reg.Len())

	require.NoError(t, reg.InitFromDocument(testDocument()))
	assert.Equal(t, 2, reg.Len())
}

func TestGetUnknownActivity(t *testing.T) {
	reg := New(nil)

	_, err := reg.Get("ghost_service.missing_activity")
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeUnknownActivity, stdErr.Code)
	assert.Contains(t, stdErr.Details, "ghost_service.missing_activity")
}

func TestInitFromFile(t *testing.T) {
	content := `
services:
  retriever_service:
    task_queue: retriever-queue
    activities:
      semantic_search_activity:
        description: Search the vector store
`
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	reg := New(nil)
	require.NoError(t, reg.InitFromFile(path))
	assert.Equal(t, 1, reg.Len())

	// Initialized registry skips a second load even for a bad path.
	require.NoError(t, reg.InitFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestInitFromFileMissing(t *testing.T) {
	reg := New(nil)
	err := reg.InitFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeRegistryLoadFailed, stdErr.Code)
}

func TestExportRoundTrip(t *testing.T) {
	reg := New(nil)
	require.NoError(t, reg.InitFromDocument(testDocument()))

	doc := reg.Export()
	require.Len(t, doc.Services, 2)

	act := doc.Services["retriever_service"].Activities["semantic_search_activity"]
	assert.Equal(t, "retriever-queue", act.TaskQueue)
	assert.Equal(t, 120, act.TimeoutSeconds)
	require.Len(t, act.Parameters, 1)
	assert.Equal(t, "query", act.Parameters[0].Name)
}

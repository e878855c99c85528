package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "pipeline-composer/internal/common/errors"
)

const storeFixture = `
workflows:
  - name: rag_query
    description: Answer a question from the document store
    activities:
      - id: retriever_service.semantic_search_activity
        result_key: semantic_search_result
        transform: query_with_collection
      - id: utility_service.format_response_activity
        result_key: format_response_result
  - name: document_processing
    activities:
      - id: processor_service.chunk_documents_activity
        result_key: chunk_documents_result
        transform: documents
`

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "workflows.yaml", storeFixture)
	writeFixture(t, dir, "notes.txt", "ignored")

	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.LoadDir(dir))
	assert.True(t, store.Initialized())
	assert.Equal(t, []string{"document_processing", "rag_query"}, store.Names())

	def, err := store.Get("rag_query")
	require.NoError(t, err)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, "retriever_service.semantic_search_activity", def.Steps[0].ActivityID)
	assert.Equal(t, "query_with_collection", def.Steps[0].Transform)
	assert.Equal(t, "semantic_search_result", def.Steps[0].ResultKey)
}

func TestLoadDirOnce(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "workflows.yaml", storeFixture)

	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.LoadDir(dir))

	// Files added after the first load are not picked up.
	writeFixture(t, dir, "extra.yaml", `
workflows:
  - name: late_arrival
    activities:
      - id: svc.act
        result_key: act_result
`)
	require.NoError(t, store.LoadDir(dir))
	_, err := store.Get("late_arrival")
	assert.Error(t, err)

	// Reset allows a full reload.
	store.Reset()
	require.NoError(t, store.LoadDir(dir))
	_, err = store.Get("late_arrival")
	assert.NoError(t, err)
}

func TestLoadDirMissingDirIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.LoadDir(filepath.Join(t.TempDir(), "nope")))
	assert.True(t, store.Initialized())
	assert.Empty(t, store.Names())
}

func TestLoadDirRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	single := `
workflows:
  - name: rag_query
    activities:
      - id: svc.act
        result_key: act_result
`
	writeFixture(t, dir, "a.yaml", single)
	writeFixture(t, dir, "b.yaml", single)

	store := NewStore(t.TempDir(), nil)
	err := store.LoadDir(dir)
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
	assert.False(t, store.Initialized())
}

func TestLoadDirRejectsInvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.yaml", `
workflows:
  - name: empty_pipeline
    activities: []
`)

	store := NewStore(t.TempDir(), nil)
	err := store.LoadDir(dir)
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
}

func TestGetNotFound(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	_, err := store.Get("ghost")
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionNotFound, stdErr.Code)
}

func TestSaveThenReload(t *testing.T) {
	saveDir := t.TempDir()
	store := NewStore(saveDir, nil)

	def := Definition{
		Name:        "dynamic_workflow",
		Description: "Composed workflow",
		Steps: []Step{
			{
				ActivityID: "utility_service.validate_inputs_activity",
				ResultKey:  "validate_inputs_result",
				Transform:  "passthrough",
			},
		},
	}

	path, err := store.Save(def)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(saveDir, "dynamic_workflow.yaml"), path)

	// Saved definition is immediately retrievable.
	got, err := store.Get("dynamic_workflow")
	require.NoError(t, err)
	assert.Equal(t, def, got)

	// And the written file is loadable by a fresh store.
	fresh := NewStore(t.TempDir(), nil)
	require.NoError(t, fresh.LoadDir(saveDir))
	got, err = fresh.Get("dynamic_workflow")
	require.NoError(t, err)
	assert.Equal(t, def, got)
}

func TestSaveRejectsInvalid(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	_, err := store.Save(Definition{Name: "bad"})
	require.Error(t, err)

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDefinitionInvalid, stdErr.Code)
}

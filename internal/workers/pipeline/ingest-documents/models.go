// internal/workers/pipeline/ingest-documents/models.go
package ingestdocuments

// Document is one ingestion record. Metadata is carried through to the
// pipeline untouched.
type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Input is the job variable payload for a document ingestion request.
type Input struct {
	Documents  []Document `json:"documents"`
	Collection string     `json:"collection,omitempty"`
}

// Output reports how the ingestion run went.
type Output struct {
	RunID          string `json:"runId"`
	WorkflowName   string `json:"workflowName"`
	Status         string `json:"status"`
	StepsCompleted int    `json:"stepsCompleted"`
	DocumentCount  int    `json:"documentCount"`
}

// internal/history/indexer.go
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"pipeline-composer/internal/common/logger"
)

// Indexer mirrors finished run summaries into Elasticsearch for
// dashboard queries. Indexing failures are logged, not fatal: the
// Postgres record is the source of truth.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Indexer{client: client, index: index, logger: log}
}

type runDocument struct {
	RunID          string `json:"run_id"`
	PipelineName   string `json:"pipeline_name"`
	Status         string `json:"status"`
	StepsCompleted int    `json:"steps_completed"`
	Error          string `json:"error,omitempty"`
	StartedAt      string `json:"started_at"`
	FinishedAt     string `json:"finished_at"`
	DurationMS     int64  `json:"duration_ms"`
}

// Index writes one run summary document keyed by run id.
func (ix *Indexer) Index(ctx context.Context, rec Record) error {
	doc := runDocument{
		RunID:          rec.RunID,
		PipelineName:   rec.PipelineName,
		Status:         rec.Status,
		StepsCompleted: rec.StepsCompleted,
		Error:          rec.Error,
		StartedAt:      rec.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		FinishedAt:     rec.FinishedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		DurationMS:     rec.FinishedAt.Sub(rec.StartedAt).Milliseconds(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal run document: %w", err)
	}

	res, err := ix.client.Index(
		ix.index,
		bytes.NewReader(body),
		ix.client.Index.WithDocumentID(rec.RunID),
		ix.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index run %s: %w", rec.RunID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing run %s returned %s", rec.RunID, res.Status())
	}

	ix.logger.Debug("run indexed", map[string]interface{}{
		"run_id": rec.RunID,
		"index":  ix.index,
	})

	return nil
}

// internal/history/repository.go
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pipeline-composer/internal/common/logger"
	"pipeline-composer/internal/pipeline"
)

// Record is one finished pipeline run as persisted for audit queries.
type Record struct {
	RunID          string
	PipelineName   string
	Status         string
	StepsCompleted int
	Error          string
	Outputs        map[string]interface{}
	StartedAt      time.Time
	FinishedAt     time.Time
}

// Repository persists finished runs to the pipeline_runs table.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Repository{db: db, logger: log}
}

// Insert writes one run record.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	outputs, err := json.Marshal(rec.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal run outputs: %w", err)
	}

	query := `
		INSERT INTO pipeline_runs
			(run_id, pipeline_name, status, steps_completed, error, outputs, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := r.db.ExecContext(ctx, query,
		rec.RunID,
		rec.PipelineName,
		rec.Status,
		rec.StepsCompleted,
		rec.Error,
		outputs,
		rec.StartedAt,
		rec.FinishedAt,
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", rec.RunID, err)
	}

	return nil
}

// GetByRunID loads one run record.
func (r *Repository) GetByRunID(ctx context.Context, runID string) (*Record, error) {
	query := `
		SELECT run_id, pipeline_name, status, steps_completed, error, outputs, started_at, finished_at
		FROM pipeline_runs
		WHERE run_id = $1`

	var rec Record
	var outputs []byte
	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&rec.RunID,
		&rec.PipelineName,
		&rec.Status,
		&rec.StepsCompleted,
		&rec.Error,
		&outputs,
		&rec.StartedAt,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	if len(outputs) > 0 {
		if err := json.Unmarshal(outputs, &rec.Outputs); err != nil {
			return nil, fmt.Errorf("failed to decode outputs for run %s: %w", runID, err)
		}
	}

	return &rec, nil
}

// ListByPipeline returns the most recent runs of one pipeline.
func (r *Repository) ListByPipeline(ctx context.Context, pipelineName string, limit int) ([]Record, error) {
	query := `
		SELECT run_id, pipeline_name, status, steps_completed, error, started_at, finished_at
		FROM pipeline_runs
		WHERE pipeline_name = $1
		ORDER BY finished_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, pipelineName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for %s: %w", pipelineName, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.RunID,
			&rec.PipelineName,
			&rec.Status,
			&rec.StepsCompleted,
			&rec.Error,
			&rec.StartedAt,
			&rec.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// RecordFromResult converts an executor result into a history record.
func RecordFromResult(result *pipeline.Result, startedAt, finishedAt time.Time) Record {
	return Record{
		RunID:          result.RunID,
		PipelineName:   result.PipelineName,
		Status:         result.Status,
		StepsCompleted: result.StepsCompleted,
		Error:          result.Error,
		Outputs:        result.Outputs,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
	}
}

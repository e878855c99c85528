// internal/runstore/runstore.go
package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pipeline-composer/internal/common/logger"
)

const keyPrefix = "run:"

// RunRecord is the live status of one pipeline run, readable by API
// consumers while the run is still in flight.
type RunRecord struct {
	RunID          string    `json:"run_id"`
	PipelineName   string    `json:"pipeline_name"`
	Status         string    `json:"status"`
	StepsCompleted int       `json:"steps_completed"`
	Error          string    `json:"error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store keeps run records in Redis with a TTL so finished runs age out.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func New(client redis.Cmdable, ttl time.Duration, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{client: client, ttl: ttl, logger: log}
}

// Put writes or refreshes a run record.
func (s *Store) Put(ctx context.Context, record RunRecord) error {
	record.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	if err := s.client.Set(ctx, keyPrefix+record.RunID, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store run %s: %w", record.RunID, err)
	}

	return nil
}

// Get reads a run record. Returns redis.Nil via the wrapped error when
// the run is unknown or already expired.
func (s *Store) Get(ctx context.Context, runID string) (*RunRecord, error) {
	data, err := s.client.Get(ctx, keyPrefix+runID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}

	var record RunRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}

	return &record, nil
}

// Delete removes a run record.
func (s *Store) Delete(ctx context.Context, runID string) error {
	return s.client.Del(ctx, keyPrefix+runID).Err()
}

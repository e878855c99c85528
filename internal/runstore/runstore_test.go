package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPut(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client, time.Hour, nil)

	mock.Regexp().ExpectSet("run:doc-processing-abc", `.*"pipeline_name":"document_processing".*`, time.Hour).SetVal("OK")

	err := store.Put(context.Background(), RunRecord{
		RunID:          "doc-processing-abc",
		PipelineName:   "document_processing",
		Status:         "RUNNING",
		StepsCompleted: 1,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client, time.Hour, nil)

	record := RunRecord{
		RunID:          "doc-processing-abc",
		PipelineName:   "document_processing",
		Status:         "COMPLETED",
		StepsCompleted: 3,
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)

	mock.ExpectGet("run:doc-processing-abc").SetVal(string(data))

	got, err := store.Get(context.Background(), "doc-processing-abc")
	require.NoError(t, err)
	assert.Equal(t, record, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client, time.Hour, nil)

	mock.ExpectGet("run:ghost").RedisNil()

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestDelete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := New(client, time.Hour, nil)

	mock.ExpectDel("run:doc-processing-abc").SetVal(1)

	require.NoError(t, store.Delete(context.Background(), "doc-processing-abc"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

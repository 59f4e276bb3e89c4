package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"SignalGate/pkg/logger"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	ID string `json:"id"`
}

type recordingJob struct {
	got []string
	err error
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "ledger.append" }
func (j *recordingJob) Handle(_ context.Context, payload interface{}) error {
	e, err := ParsePayload[entry](payload)
	if err != nil {
		return err
	}
	j.got = append(j.got, e.ID)
	return j.err
}

func anyArgs(_, _ []interface{}) error { return nil }

func TestParsePayload(t *testing.T) {
	e, err := ParsePayload[entry](json.RawMessage(`{"id":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", e.ID)

	e, err = ParsePayload[entry](map[string]interface{}{"id": "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", e.ID)

	e, err = ParsePayload[entry](entry{ID: "c"})
	require.NoError(t, err)
	assert.Equal(t, "c", e.ID)

	_, err = ParsePayload[entry](42)
	assert.Error(t, err)
}

func TestProcessMessageDispatchesToJob(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(logger.NewNop(), QueueConfig{RetryLimit: 1}, db)
	job := &recordingJob{}
	q.RegisterJob(job)

	q.processMessage(context.Background(), Message{ID: "m1", Type: "ledger.append", Payload: json.RawMessage(`{"id":"e1"}`)})

	assert.Equal(t, []string{"e1"}, job.got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessMessageSchedulesRetryThenDLQ(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(logger.NewNop(), QueueConfig{RetryLimit: 1, RetryDelay: time.Minute}, db)
	q.RegisterJob(&recordingJob{err: errors.New("ledger down")})

	mock.CustomMatch(anyArgs).ExpectZAdd("signalgate:queue:retry", redis.Z{}).SetVal(1)
	q.processMessage(context.Background(), Message{ID: "m1", Type: "ledger.append", Payload: json.RawMessage(`{"id":"e1"}`)})

	mock.CustomMatch(anyArgs).ExpectLPush("signalgate:queue:dlq", "").SetVal(1)
	q.processMessage(context.Background(), Message{ID: "m1", Type: "ledger.append", Attempts: 1, Payload: json.RawMessage(`{"id":"e1"}`)})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcessRetryMessagesMovesDueMembers(t *testing.T) {
	db, mock := redismock.NewClientMock()
	q := NewRedisQueue(logger.NewNop(), QueueConfig{}, db, WithKeyPrefix("test"))
	now := time.Unix(1_700_000_000, 0)

	mock.ExpectZRangeByScore("test:retry", &redis.ZRangeBy{Min: "0", Max: "1700000000"}).SetVal([]string{"m1"})
	mock.ExpectTxPipeline()
	mock.ExpectZRem("test:retry", "m1").SetVal(1)
	mock.ExpectLPush("test:messages", "m1").SetVal(1)
	mock.ExpectTxPipelineExec()

	q.processRetryMessages(context.Background(), now)
	assert.NoError(t, mock.ExpectationsWereMet())
}

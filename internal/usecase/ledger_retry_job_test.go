package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRetryJobReappendsQueuedEntry(t *testing.T) {
	ledger := repository.NewMemoryLedger(nil)
	pub := &recordingPublisher{}
	m := newCountingMetrics()
	job := NewLedgerRetryJob(ledger, pub, m, nil)
	assert.Equal(t, LedgerAppendMessageType, job.Type())

	raw, err := json.Marshal(models.LedgerEntry{Decision: models.LedgerReject, Signal: passingSignal()})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), json.RawMessage(raw)))

	entries, _ := ledger.Query(context.Background(), models.LedgerFilter{})
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "SPY", entries[0].Signal.Ticker)
	require.Len(t, pub.entries, 1)
	assert.Equal(t, entries[0].ID, pub.entries[0].ID)
	assert.Equal(t, 1, m.appends)
}

func TestLedgerRetryJobFailuresAreReturned(t *testing.T) {
	pub := &recordingPublisher{}
	job := NewLedgerRetryJob(failingLedger{}, pub, nil, nil)

	err := job.Handle(context.Background(), models.LedgerEntry{Decision: models.LedgerApprove})
	assert.ErrorContains(t, err, "re-append ledger entry")
	assert.Empty(t, pub.entries)

	assert.Error(t, job.Handle(context.Background(), json.RawMessage(`{bad`)))
}

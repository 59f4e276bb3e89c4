package usecase

import (
	"context"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededLedger(t *testing.T, n int) *repository.MemoryLedger {
	t.Helper()
	clock := fixedClock(time.UnixMilli(1_700_000_000_000), time.Millisecond)
	ledger := repository.NewMemoryLedger(repository.NewStamper(clock))
	for i := 0; i < n; i++ {
		d := models.LedgerApprove
		if i%2 == 1 {
			d = models.LedgerReject
		}
		_, err := ledger.Append(context.Background(), models.LedgerEntry{
			Decision: d,
			Signal:   passingSignal(),
		})
		require.NoError(t, err)
	}
	return ledger
}

func TestListDefaultsAndCapsLimit(t *testing.T) {
	uc := NewLedgerQueryUseCase(seededLedger(t, 250))

	page, err := uc.List(context.Background(), models.LedgerFilter{})
	require.NoError(t, err)
	assert.Len(t, page.Entries, models.DefaultLedgerLimit)
	assert.Equal(t, models.DefaultLedgerLimit, page.Limit)
	assert.EqualValues(t, 250, page.Total)

	page, err = uc.List(context.Background(), models.LedgerFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, page.Entries, models.MaxLedgerLimit)
	assert.Equal(t, models.MaxLedgerLimit, page.Limit)

	for i := 1; i < len(page.Entries); i++ {
		assert.Greater(t, page.Entries[i-1].CreatedAt, page.Entries[i].CreatedAt)
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	uc := NewLedgerQueryUseCase(seededLedger(t, 10))

	page, err := uc.List(context.Background(), models.LedgerFilter{Decision: models.LedgerReject, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 3)
	assert.EqualValues(t, 5, page.Total)

	n, err := uc.Count(context.Background(), models.LedgerFilter{Ticker: "QQQ"})
	require.NoError(t, err)
	assert.Zero(t, n)

	page, err = uc.List(context.Background(), models.LedgerFilter{Ticker: "QQQ"})
	require.NoError(t, err)
	assert.NotNil(t, page.Entries)
	assert.Empty(t, page.Entries)
}

func TestListRejectsInvertedRange(t *testing.T) {
	uc := NewLedgerQueryUseCase(seededLedger(t, 1))
	_, err := uc.List(context.Background(), models.LedgerFilter{Since: 200, Until: 100})
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = uc.Count(context.Background(), models.LedgerFilter{Since: 200, Until: 100})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestListPropagatesLedgerErrors(t *testing.T) {
	_, err := NewLedgerQueryUseCase(failingLedger{}).List(context.Background(), models.LedgerFilter{})
	assert.ErrorContains(t, err, "query ledger")
}

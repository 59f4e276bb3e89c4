package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"SignalGate/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func sampleEntry(ticker string, decision models.LedgerDecision, quality models.Quality) models.LedgerEntry {
	return models.LedgerEntry{
		EngineVersion: "2.1.0",
		Signal: models.Signal{
			Ticker:   ticker,
			Exchange: "NASDAQ",
			Price:    431.2,
			Signal: models.SignalDetails{
				Type:      models.DirectionLong,
				Timeframe: "5",
				Quality:   quality,
				AIScore:   8.1,
				Timestamp: 1_700_000_000_000,
			},
			PhaseContext: &models.PhaseContext{Phase: ptr(82), Session: models.SessionOpen},
		},
		PhaseContext:    &models.PhaseContext{Phase: ptr(82), Session: models.SessionOpen},
		Decision:        decision,
		DecisionReason:  "all gates passed",
		ConfluenceScore: decimal.RequireFromString("72.45"),
		Regime:          models.Regime{Volatility: "NORMAL", Trend: "UP", Liquidity: "DEEP", IVRank: 40},
	}
}

func TestMemoryLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(nil)

	stored, err := l.Append(ctx, sampleEntry("SPY", models.LedgerApprove, models.QualityHigh))
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)

	got, err := l.Query(ctx, models.LedgerFilter{Ticker: "SPY", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stored.ID, got[0].ID)
	assert.Equal(t, models.LedgerApprove, got[0].Decision)
	assert.Equal(t, "SPY", got[0].Signal.Ticker)
	assert.True(t, stored.ConfluenceScore.Equal(got[0].ConfluenceScore))
}

func TestMemoryLedgerUniqueIDsAndOrder(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(nil)

	ids := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		e, err := l.Append(ctx, sampleEntry("QQQ", models.LedgerReject, models.QualityLow))
		require.NoError(t, err)
		ids[e.ID] = struct{}{}
	}
	assert.Len(t, ids, 50)

	got, err := l.Query(ctx, models.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, got, 50)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i-1].CreatedAt, got[i].CreatedAt, "most recent first")
	}
}

func TestMemoryLedgerConcurrentAppendsStayOrdered(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(nil)

	const workers, per = 16, 25
	errs := make(chan error, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				if _, err := l.Append(ctx, sampleEntry("IWM", models.LedgerApprove, models.QualityHigh)); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	require.Len(t, l.entries, workers*per)
	for i := 1; i < len(l.entries); i++ {
		assert.Less(t, l.entries[i-1].CreatedAt, l.entries[i].CreatedAt, "index %d", i)
	}
}

func TestMemoryLedgerFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)
	l := NewMemoryLedger(NewStamper(func() time.Time { return now }))

	for i := 0; i < 250; i++ {
		_, err := l.Append(ctx, sampleEntry("SPY", models.LedgerReject, models.QualityMedium))
		require.NoError(t, err)
	}
	_, err := l.Append(ctx, sampleEntry("AAPL", models.LedgerApprove, models.QualityExtreme))
	require.NoError(t, err)
	_, err = l.Append(ctx, sampleEntry("AAPL", models.LedgerSkip, models.QualityExtreme))
	require.NoError(t, err)

	got, err := l.Query(ctx, models.LedgerFilter{})
	require.NoError(t, err)
	assert.Len(t, got, models.DefaultLedgerLimit)

	got, err = l.Query(ctx, models.LedgerFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, got, models.MaxLedgerLimit)

	got, err = l.Query(ctx, models.LedgerFilter{Decision: models.LedgerSkip})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Signal.Ticker)

	n, err := l.Count(ctx, models.LedgerFilter{Quality: models.QualityExtreme, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "count ignores limit")

	n, err = l.Count(ctx, models.LedgerFilter{Since: 1_700_000_000_250, Until: 1_700_000_000_251})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = l.Count(ctx, models.LedgerFilter{Timeframe: "1"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryLedgerDoesNotAliasCallerData(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(nil)

	e := sampleEntry("SPY", models.LedgerApprove, models.QualityHigh)
	_, err := l.Append(ctx, e)
	require.NoError(t, err)
	*e.PhaseContext.Phase = -5

	got, err := l.Query(ctx, models.LedgerFilter{})
	require.NoError(t, err)
	assert.Equal(t, 82.0, *got[0].PhaseContext.Phase)
}

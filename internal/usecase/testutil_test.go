package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
)

func ptr(v float64) *float64 { return &v }

// fixedClock advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

// openSessionMs is a Monday 10:00 America/New_York.
var openSessionMs = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC).UnixMilli()

func passingSignal() models.Signal {
	return models.Signal{
		Ticker:   "SPY",
		Exchange: "ARCA",
		Price:    512.3,
		Signal: models.SignalDetails{
			Type:      models.DirectionLong,
			Timeframe: "5",
			Quality:   models.QualityHigh,
			AIScore:   8,
			Timestamp: openSessionMs,
		},
		PhaseContext: &models.PhaseContext{Phase: ptr(70)},
	}
}

func passingContext() models.DecisionContext {
	return models.DecisionContext{
		Indicator: models.Indicator{
			SignalType: models.DirectionLong,
			AIScore:    8,
			Phase:      ptr(70),
			Session:    models.SessionOpen,
			Symbol:     "SPY",
			Timeframe:  "5",
			Quality:    models.QualityHigh,
			Timestamp:  openSessionMs,
		},
		Market: &models.MarketContext{
			Options:   models.FromAPI(models.OptionsData{GammaBias: models.GammaBullish, IVRank: 35}),
			Stats:     models.FromAPI(models.MarketStats{ATR14: 1.2, RV20: 1.0, Trend: models.TrendUp}),
			Liquidity: models.FromAPI(models.LiquidityData{SpreadBps: 8}),
		},
	}
}

type stubOptions struct {
	data  models.OptionsData
	err   error
	delay time.Duration
}

func (s stubOptions) FetchOptions(ctx context.Context, _ string) (models.OptionsData, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.OptionsData{}, ctx.Err()
		}
	}
	return s.data, s.err
}

type stubStats struct {
	data  models.MarketStats
	err   error
	block bool
}

func (s stubStats) FetchMarketStats(_ context.Context, _, _ string) (models.MarketStats, error) {
	if s.block {
		select {}
	}
	return s.data, s.err
}

type stubLiquidity struct {
	data models.LiquidityData
	err  error
}

func (s stubLiquidity) FetchLiquidity(_ context.Context, _ string) (models.LiquidityData, error) {
	return s.data, s.err
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, models.LedgerEntry) (models.LedgerEntry, error) {
	return models.LedgerEntry{}, errors.New("ledger unavailable: connection refused")
}

func (failingLedger) Query(context.Context, models.LedgerFilter) ([]models.LedgerEntry, error) {
	return nil, errors.New("down")
}

func (failingLedger) Count(context.Context, models.LedgerFilter) (int64, error) {
	return 0, errors.New("down")
}

type recordingBuffer struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func (b *recordingBuffer) Buffer(_ context.Context, e models.LedgerEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []models.LedgerEntry
}

func (p *recordingPublisher) Publish(_ context.Context, e models.LedgerEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

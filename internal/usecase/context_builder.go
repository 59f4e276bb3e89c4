package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/pkg/logger"
	pkgmetrics "SignalGate/pkg/metrics"
)

// Provider names used in logs, metrics and fallback tags.
const (
	ProviderOptions    = "options"
	ProviderVolatility = "volatility"
	ProviderLiquidity  = "liquidity"
)

var errProviderNotConfigured = errors.New("provider not configured")

// DefaultOptions is substituted when the options provider fails.
func DefaultOptions() models.OptionsData {
	return models.OptionsData{GammaBias: models.GammaNeutral, IVRank: 50}
}

// DefaultStats is substituted when the volatility provider fails.
func DefaultStats() models.MarketStats {
	return models.MarketStats{Trend: models.TrendSideways}
}

// DefaultLiquidity is substituted when the liquidity provider fails. The
// spread is wide enough to fail the spread gate.
func DefaultLiquidity() models.LiquidityData {
	return models.LiquidityData{SpreadBps: 999}
}

// ProviderTimeouts bounds each upstream call independently.
type ProviderTimeouts struct {
	Options    time.Duration
	Volatility time.Duration
	Liquidity  time.Duration
}

// ContextBuilder assembles a DecisionContext from a signal and the three
// market-data providers.
type ContextBuilder struct {
	options    domsvc.OptionsProvider
	volatility domsvc.VolatilityProvider
	liquidity  domsvc.LiquidityProvider
	timeouts   ProviderTimeouts
	metrics    domrepo.Metrics
	loc        *time.Location
	l          *logger.Logger
}

func NewContextBuilder(
	options domsvc.OptionsProvider,
	volatility domsvc.VolatilityProvider,
	liquidity domsvc.LiquidityProvider,
	timeouts ProviderTimeouts,
	metrics domrepo.Metrics,
) *ContextBuilder {
	if timeouts.Options <= 0 {
		timeouts.Options = 800 * time.Millisecond
	}
	if timeouts.Volatility <= 0 {
		timeouts.Volatility = 800 * time.Millisecond
	}
	if timeouts.Liquidity <= 0 {
		timeouts.Liquidity = 800 * time.Millisecond
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &ContextBuilder{
		options:    options,
		volatility: volatility,
		liquidity:  liquidity,
		timeouts:   timeouts,
		metrics:    metrics,
		loc:        LoadMarketLocation(),
		l:          logger.NewNop(),
	}
}

func (b *ContextBuilder) SetLogger(l *logger.Logger) {
	if l != nil {
		b.l = l
	}
}

// Build never fails: each provider that errors, times out or returns a
// malformed value is replaced by its default and tagged FALLBACK.
func (b *ContextBuilder) Build(ctx context.Context, sig models.Signal) models.DecisionContext {
	dctx := models.DecisionContext{Indicator: b.indicator(sig)}
	symbol := sig.Ticker
	timeframe := sig.Signal.Timeframe

	market := &models.MarketContext{
		Options:   models.FromFallback(DefaultOptions(), errProviderNotConfigured),
		Stats:     models.FromFallback(DefaultStats(), errProviderNotConfigured),
		Liquidity: models.FromFallback(DefaultLiquidity(), errProviderNotConfigured),
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 3)
	var wg sync.WaitGroup

	if b.options != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := callWithTimeout(ctx, b.timeouts.Options, func(c context.Context) (models.OptionsData, error) {
				return b.options.FetchOptions(c, symbol)
			})
			ch <- item{ProviderOptions, v, err}
		}()
	}
	if b.volatility != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := callWithTimeout(ctx, b.timeouts.Volatility, func(c context.Context) (models.MarketStats, error) {
				return b.volatility.FetchMarketStats(c, symbol, timeframe)
			})
			ch <- item{ProviderVolatility, v, err}
		}()
	}
	if b.liquidity != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := callWithTimeout(ctx, b.timeouts.Liquidity, func(c context.Context) (models.LiquidityData, error) {
				return b.liquidity.FetchLiquidity(c, symbol)
			})
			ch <- item{ProviderLiquidity, v, err}
		}()
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			b.fallback(market, it.name, symbol, it.err)
			continue
		}
		switch it.name {
		case ProviderOptions:
			market.Options = models.FromAPI(it.val.(models.OptionsData))
		case ProviderVolatility:
			market.Stats = models.FromAPI(it.val.(models.MarketStats))
		case ProviderLiquidity:
			market.Liquidity = models.FromAPI(it.val.(models.LiquidityData))
		}
	}

	for name, missing := range map[string]bool{
		ProviderOptions:    b.options == nil,
		ProviderVolatility: b.volatility == nil,
		ProviderLiquidity:  b.liquidity == nil,
	} {
		if missing {
			b.metrics.RecordFallback(name)
		}
	}

	dctx.Market = market
	return dctx
}

func (b *ContextBuilder) fallback(market *models.MarketContext, name, symbol string, err error) {
	switch name {
	case ProviderOptions:
		market.Options = models.FromFallback(DefaultOptions(), err)
	case ProviderVolatility:
		market.Stats = models.FromFallback(DefaultStats(), err)
	case ProviderLiquidity:
		market.Liquidity = models.FromFallback(DefaultLiquidity(), err)
	}
	b.metrics.RecordFallback(name)
	b.l.Warn("provider failed, using fallback",
		logger.String("provider", name),
		logger.String("symbol", symbol),
		logger.Error(err),
	)
}

func (b *ContextBuilder) indicator(sig models.Signal) models.Indicator {
	ind := models.Indicator{
		SignalType: sig.Signal.Type,
		AIScore:    sig.Signal.AIScore,
		Session:    ResolveSession(sig, b.loc),
		Symbol:     sig.Ticker,
		Timeframe:  sig.Signal.Timeframe,
		Quality:    sig.Signal.Quality,
		Timestamp:  sig.Signal.Timestamp,
	}
	if sig.PhaseContext != nil && sig.PhaseContext.Phase != nil {
		p := *sig.PhaseContext.Phase
		ind.Phase = &p
	}
	return ind
}

// callWithTimeout returns when fn does or when the deadline passes, whichever
// is first, so a provider that ignores its context cannot stall the build.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{zero, fmt.Errorf("provider panic: %v", r)}
			}
		}()
		v, err := fn(cctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		return zero, fmt.Errorf("timed out after %s: %w", timeout, cctx.Err())
	}
}

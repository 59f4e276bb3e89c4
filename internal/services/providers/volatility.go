package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/domain/repository"
	domsvc "SignalGate/internal/domain/service"
	"SignalGate/internal/services/features"
)

var (
	_ domsvc.VolatilityProvider = (*VolatilityClient)(nil)
	_ domsvc.VolatilityProvider = (*CandleVolatility)(nil)
)

// VolatilityClient reads ATR14/RV20 and trend from the stats service.
type VolatilityClient struct {
	*HTTPProviderBase
}

func NewVolatilityClient(base *HTTPProviderBase) *VolatilityClient {
	return &VolatilityClient{HTTPProviderBase: base}
}

// FetchMarketStats calls GET /stats/{symbol}?timeframe=tf.
func (c *VolatilityClient) FetchMarketStats(ctx context.Context, symbol, timeframe string) (models.MarketStats, error) {
	q := url.Values{}
	if timeframe != "" {
		q.Set("timeframe", timeframe)
	}
	var out models.MarketStats
	err := c.Get(ctx, "/stats/"+url.PathEscape(symbol), q, func(body []byte) error {
		out = models.MarketStats{}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}
		return validateStats(out)
	})
	if err != nil {
		return models.MarketStats{}, err
	}
	return out, nil
}

func validateStats(s models.MarketStats) error {
	if s.ATR14 < 0 || s.RV20 < 0 {
		return fmt.Errorf("%w: negative atr14/rv20", ErrMalformedResponse)
	}
	switch s.Trend {
	case models.TrendUp, models.TrendDown, models.TrendSideways:
	default:
		return fmt.Errorf("%w: trend %q", ErrMalformedResponse, s.Trend)
	}
	return nil
}

// CandleVolatility derives market stats from stored candles instead of an
// upstream service.
type CandleVolatility struct {
	store   repository.CandleStore
	candles int
}

func NewCandleVolatility(store repository.CandleStore, candles int) *CandleVolatility {
	if candles < features.RVWindow+1 {
		candles = 60
	}
	return &CandleVolatility{store: store, candles: candles}
}

// FetchMarketStats loads the latest candles and computes ATR14, RV20 and trend.
func (v *CandleVolatility) FetchMarketStats(ctx context.Context, symbol, timeframe string) (models.MarketStats, error) {
	tf := repository.NormalizeTimeframe(timeframe)
	candles, err := v.store.GetLatestNCandles(ctx, symbol, v.candles, tf)
	if err != nil {
		return models.MarketStats{}, fmt.Errorf("load candles: %w", err)
	}
	stats, ok := features.MarketStats(candles)
	if !ok {
		return models.MarketStats{}, fmt.Errorf("not enough candles for %s: have %d", symbol, len(candles))
	}
	return stats, nil
}

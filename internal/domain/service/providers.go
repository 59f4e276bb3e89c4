package service

import (
	"context"

	"SignalGate/internal/domain/models"
)

// OptionsProvider fetches options analytics (gamma positioning, IV rank).
type OptionsProvider interface {
	FetchOptions(ctx context.Context, symbol string) (models.OptionsData, error)
}

// VolatilityProvider fetches volatility and trend statistics.
type VolatilityProvider interface {
	FetchMarketStats(ctx context.Context, symbol, timeframe string) (models.MarketStats, error)
}

// LiquidityProvider fetches spread and depth data.
type LiquidityProvider interface {
	FetchLiquidity(ctx context.Context, symbol string) (models.LiquidityData, error)
}

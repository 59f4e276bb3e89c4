package repository

import (
	"context"

	"SignalGate/internal/domain/models"
)

// CandleStore provides read-only access to OHLCV bars.
type CandleStore interface {
	GetLatestNCandles(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Candle, error)
}

// Package features derives volatility statistics from candles.
package features

import (
	"math"

	"SignalGate/internal/domain/models"
)

const (
	ATRPeriod = 14
	RVWindow  = 20
	// TrendBandPct is the distance from the SMA, in percent, inside which
	// price is considered sideways.
	TrendBandPct = 0.2
)

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(candles)-1, or nil if insufficient data.
func ComputeLogReturns(candles []models.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility returns the sample standard deviation of the last
// window log returns scaled by sqrt(barsPerYear). barsPerYear 1 gives the
// per-bar figure.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(cur models.Candle, prevClose float64) float64 {
	return math.Max(cur.High-cur.Low, math.Max(math.Abs(cur.High-prevClose), math.Abs(cur.Low-prevClose)))
}

// ATR returns the simple average true range over the last period bars, or 0
// if there are not enough candles.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles[i], candles[i-1].Close)
	}
	return sum / float64(period)
}

// SMA returns the simple moving average of the last n closes.
func SMA(candles []models.Candle, n int) float64 {
	if n <= 0 || len(candles) < n {
		return 0
	}
	sum := 0.0
	for _, c := range candles[len(candles)-n:] {
		sum += c.Close
	}
	return sum / float64(n)
}

// ClassifyTrend compares the last close with its n-bar SMA.
func ClassifyTrend(candles []models.Candle, n int) models.Trend {
	sma := SMA(candles, n)
	if sma <= 0 {
		return models.TrendSideways
	}
	last := candles[len(candles)-1].Close
	dev := (last - sma) / sma * 100
	switch {
	case dev > TrendBandPct:
		return models.TrendUp
	case dev < -TrendBandPct:
		return models.TrendDown
	default:
		return models.TrendSideways
	}
}

// VolumeRatio is the last bar's volume over the average of the n bars before it.
func VolumeRatio(candles []models.Candle, n int) float64 {
	if n <= 0 || len(candles) < n+1 {
		return 0
	}
	sum := 0.0
	for _, c := range candles[len(candles)-n-1 : len(candles)-1] {
		sum += c.Volume
	}
	if sum <= 0 {
		return 0
	}
	return candles[len(candles)-1].Volume / (sum / float64(n))
}

// MarketStats builds ATR14 and RV20 in percent of price so the two are
// comparable: ATR as a share of the last close, RV as per-bar log-return
// deviation.
func MarketStats(candles []models.Candle) (models.MarketStats, bool) {
	if len(candles) < ATRPeriod+1 || len(candles) < RVWindow+1 {
		return models.MarketStats{}, false
	}
	last := candles[len(candles)-1].Close
	if last <= 0 {
		return models.MarketStats{}, false
	}
	return models.MarketStats{
		ATR14:       ATR(candles, ATRPeriod) / last * 100,
		RV20:        RealizedVolatility(ComputeLogReturns(candles), RVWindow, 1) * 100,
		Trend:       ClassifyTrend(candles, RVWindow),
		VolumeRatio: VolumeRatio(candles, RVWindow),
	}, true
}

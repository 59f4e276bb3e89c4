package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/domain/repository"
	"SignalGate/internal/service/cache"
	"SignalGate/pkg/config"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerConfig(url string) config.ProviderConfig {
	var cfg config.ProviderConfig
	cfg.URL = url
	cfg.APIKey = "secret"
	cfg.Timeout = time.Second
	cfg.Breaker.ConsecutiveFails = 3
	cfg.Breaker.OpenTimeout = time.Minute
	return cfg
}

func TestOptionsClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/options/SPY", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		w.Write([]byte(`{"gamma_bias":"BULLISH","gamma_exposure":1.5,"iv_rank":42,"put_call_ratio":0.8}`))
	}))
	defer srv.Close()

	c := NewOptionsClient(NewHTTPProviderBase("options", providerConfig(srv.URL)))
	got, err := c.FetchOptions(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, models.GammaBullish, got.GammaBias)
	assert.Equal(t, 42.0, got.IVRank)
}

func TestOptionsClientRejectsUnknownBias(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gamma_bias":"SIDEWAYS","iv_rank":42}`))
	}))
	defer srv.Close()

	c := NewOptionsClient(NewHTTPProviderBase("options", providerConfig(srv.URL)))
	_, err := c.FetchOptions(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestProviderRetriesTransientFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"spread_bps":3.5,"depth_score":0.9}`))
	}))
	defer srv.Close()

	cfg := providerConfig(srv.URL)
	cfg.Retries = 1
	c := NewLiquidityClient(NewHTTPProviderBase("liquidity", cfg))
	got, err := c.FetchLiquidity(context.Background(), "QQQ")
	require.NoError(t, err)
	assert.Equal(t, 3.5, got.SpreadBps)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestProviderBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	base := NewHTTPProviderBase("liquidity", providerConfig(srv.URL))
	c := NewLiquidityClient(base)
	for i := 0; i < 3; i++ {
		_, err := c.FetchLiquidity(context.Background(), "QQQ")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, base.BreakerState())

	_, err := c.FetchLiquidity(context.Background(), "QQQ")
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits), "open breaker must not reach the server")
}

func TestProviderCachesResponses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "5m", r.URL.Query().Get("timeframe"))
		w.Write([]byte(`{"atr14":1.2,"rv20":0.8,"trend":"UP","volume_ratio":1.1}`))
	}))
	defer srv.Close()

	base := NewHTTPProviderBase("volatility", providerConfig(srv.URL), WithCache(cache.NewTTLCache(), time.Minute))
	c := NewVolatilityClient(base)
	for i := 0; i < 3; i++ {
		got, err := c.FetchMarketStats(context.Background(), "SPY", "5m")
		require.NoError(t, err)
		assert.Equal(t, models.TrendUp, got.Trend)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestProviderDoesNotCacheMalformedResponses(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Write([]byte(`{"gamma_bias":"SIDEWAYS","iv_rank":42}`))
			return
		}
		w.Write([]byte(`{"gamma_bias":"BEARISH","iv_rank":61}`))
	}))
	defer srv.Close()

	store := cache.NewTTLCache()
	c := NewOptionsClient(NewHTTPProviderBase("options", providerConfig(srv.URL), WithCache(store, time.Minute)))

	_, err := c.FetchOptions(context.Background(), "SPY")
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.Equal(t, 0, store.Len())

	for i := 0; i < 2; i++ {
		got, err := c.FetchOptions(context.Background(), "SPY")
		require.NoError(t, err)
		assert.Equal(t, models.GammaBearish, got.GammaBias)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
	assert.Equal(t, 1, store.Len())
}

func TestLiquidityClientRejectsNegativeSpread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spread_bps":-1}`))
	}))
	defer srv.Close()

	c := NewLiquidityClient(NewHTTPProviderBase("liquidity", providerConfig(srv.URL)))
	_, err := c.FetchLiquidity(context.Background(), "SPY")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestProviderWithoutURL(t *testing.T) {
	c := NewOptionsClient(NewHTTPProviderBase("options", config.ProviderConfig{}))
	_, err := c.FetchOptions(context.Background(), "SPY")
	assert.Error(t, err)
}

type fakeCandleStore struct {
	candles []models.Candle
	gotTF   repository.Timeframe
	err     error
}

func (f *fakeCandleStore) GetLatestNCandles(_ context.Context, _ string, n int, tf repository.Timeframe) ([]models.Candle, error) {
	f.gotTF = tf
	if f.err != nil {
		return nil, f.err
	}
	if len(f.candles) > n {
		return f.candles[len(f.candles)-n:], nil
	}
	return f.candles, nil
}

func TestCandleVolatility(t *testing.T) {
	candles := make([]models.Candle, 30)
	for i := range candles {
		p := 100 + float64(i%2)
		candles[i] = models.Candle{Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	}
	store := &fakeCandleStore{candles: candles}
	v := NewCandleVolatility(store, 60)

	got, err := v.FetchMarketStats(context.Background(), "SPY", "5")
	require.NoError(t, err)
	assert.Equal(t, repository.TF5m, store.gotTF)
	assert.Greater(t, got.ATR14, 0.0)
	assert.Greater(t, got.RV20, 0.0)

	store.candles = candles[:10]
	_, err = v.FetchMarketStats(context.Background(), "SPY", "5m")
	assert.Error(t, err)

	store.err = errors.New("clickhouse down")
	_, err = v.FetchMarketStats(context.Background(), "SPY", "5m")
	assert.ErrorContains(t, err, "clickhouse down")
}

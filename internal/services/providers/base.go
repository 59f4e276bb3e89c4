// Package providers holds the HTTP clients for the upstream market-data services.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"SignalGate/internal/service/cache"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	"SignalGate/pkg/logger"

	"github.com/sony/gobreaker"
)

// ErrMalformedResponse marks a provider payload that decoded but failed validation.
var ErrMalformedResponse = errors.New("malformed provider response")

// HTTPProviderBase centralizes GET requests to one upstream provider behind a
// circuit breaker, with bounded retries and an optional response cache.
type HTTPProviderBase struct {
	name     string
	baseURL  string
	apiKey   string
	retries  int
	client   *xhttp.Client
	breaker  *gobreaker.CircuitBreaker
	cache    cache.BytesCache
	cacheTTL time.Duration
	l        *logger.Logger
}

// ProviderOption configures HTTPProviderBase.
type ProviderOption func(*HTTPProviderBase)

// WithCache enables response caching for ttl.
func WithCache(c cache.BytesCache, ttl time.Duration) ProviderOption {
	return func(b *HTTPProviderBase) {
		if c != nil && ttl > 0 {
			b.cache = c
			b.cacheTTL = ttl
		}
	}
}

// WithProviderLogger injects a structured logger.
func WithProviderLogger(l *logger.Logger) ProviderOption {
	return func(b *HTTPProviderBase) {
		if l != nil {
			b.l = l
		}
	}
}

// NewHTTPProviderBase builds the client and breaker from one provider block of the config.
func NewHTTPProviderBase(name string, cfg config.ProviderConfig, opts ...ProviderOption) *HTTPProviderBase {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 800 * time.Millisecond
	}
	b := &HTTPProviderBase{
		name:    name,
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		retries: cfg.Retries,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	trips := cfg.Breaker.ConsecutiveFails
	if trips == 0 {
		trips = 5
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.l.Warn("provider circuit breaker state changed",
				logger.String("provider", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return b
}

// Name returns the provider name used in logs and metrics.
func (b *HTTPProviderBase) Name() string { return b.name }

// BreakerState reports the current circuit breaker state.
func (b *HTTPProviderBase) BreakerState() gobreaker.State { return b.breaker.State() }

// Get fetches baseURL+path and hands the body to accept, which decodes and
// validates it. Only accepted bodies are cached; a cached body that no longer
// passes accept is refetched.
func (b *HTTPProviderBase) Get(ctx context.Context, path string, query url.Values, accept func(body []byte) error) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("%s provider url not configured", b.name)
	}

	key := b.name + ":" + path + "?" + query.Encode()
	if b.cache != nil {
		if body, ok, err := b.cache.GetBytes(ctx, key); err == nil && ok {
			if err := accept(body); err == nil {
				return nil
			}
		}
	}

	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.getWithRetry(ctx, path, query)
	})
	if err != nil {
		return fmt.Errorf("%s %s: %w", b.name, path, err)
	}
	body := out.([]byte)
	if err := accept(body); err != nil {
		return err
	}

	if b.cache != nil {
		if err := b.cache.SetBytes(ctx, key, body, b.cacheTTL); err != nil {
			b.l.Debug("provider cache write failed", logger.String("provider", b.name), logger.Error(err))
		}
	}
	return nil
}

func (b *HTTPProviderBase) getWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	attempts := b.retries + 1
	var err error
	for i := 1; i <= attempts; i++ {
		var body []byte
		err = b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         b.baseURL + path,
			Headers:     b.headers(),
			QueryParams: query,
		}, &body)
		if err == nil {
			return body, nil
		}
		if i == attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, err
}

func (b *HTTPProviderBase) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if b.apiKey != "" {
		h["X-API-Key"] = b.apiKey
	}
	return h
}

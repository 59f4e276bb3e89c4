package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
)

var _ domsvc.LiquidityProvider = (*LiquidityClient)(nil)

// LiquidityClient reads spread and book depth.
type LiquidityClient struct {
	*HTTPProviderBase
}

func NewLiquidityClient(base *HTTPProviderBase) *LiquidityClient {
	return &LiquidityClient{HTTPProviderBase: base}
}

// FetchLiquidity calls GET /liquidity/{symbol}.
func (c *LiquidityClient) FetchLiquidity(ctx context.Context, symbol string) (models.LiquidityData, error) {
	var out models.LiquidityData
	err := c.Get(ctx, "/liquidity/"+url.PathEscape(symbol), nil, func(body []byte) error {
		out = models.LiquidityData{}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode liquidity: %w", err)
		}
		return validateLiquidity(out)
	})
	if err != nil {
		return models.LiquidityData{}, err
	}
	return out, nil
}

func validateLiquidity(d models.LiquidityData) error {
	if d.SpreadBps < 0 {
		return fmt.Errorf("%w: negative spread_bps %v", ErrMalformedResponse, d.SpreadBps)
	}
	if d.DepthScore < 0 || d.BidSize < 0 || d.AskSize < 0 {
		return fmt.Errorf("%w: negative depth", ErrMalformedResponse)
	}
	return nil
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"

	"SignalGate/internal/domain/models"
	domsvc "SignalGate/internal/domain/service"
)

var _ domsvc.OptionsProvider = (*OptionsClient)(nil)

// OptionsClient reads gamma positioning and IV rank.
type OptionsClient struct {
	*HTTPProviderBase
}

func NewOptionsClient(base *HTTPProviderBase) *OptionsClient {
	return &OptionsClient{HTTPProviderBase: base}
}

// FetchOptions calls GET /options/{symbol}.
func (c *OptionsClient) FetchOptions(ctx context.Context, symbol string) (models.OptionsData, error) {
	var out models.OptionsData
	err := c.Get(ctx, "/options/"+url.PathEscape(symbol), nil, func(body []byte) error {
		out = models.OptionsData{}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode options: %w", err)
		}
		return validateOptions(out)
	})
	if err != nil {
		return models.OptionsData{}, err
	}
	return out, nil
}

func validateOptions(d models.OptionsData) error {
	switch d.GammaBias {
	case models.GammaBullish, models.GammaBearish, models.GammaNeutral:
	default:
		return fmt.Errorf("%w: gamma_bias %q", ErrMalformedResponse, d.GammaBias)
	}
	if d.IVRank < 0 || d.IVRank > 100 || math.IsNaN(d.IVRank) {
		return fmt.Errorf("%w: iv_rank %v out of range", ErrMalformedResponse, d.IVRank)
	}
	return nil
}

package gates

import (
	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// VolatilityGate rejects signals when short-term range expands well past realized volatility.
type VolatilityGate struct {
	reg *rules.Registry
}

func NewVolatilityGate(reg *rules.Registry) *VolatilityGate { return &VolatilityGate{reg: reg} }

func (g *VolatilityGate) Name() string { return rules.GateVolatility }

func (g *VolatilityGate) Evaluate(ctx models.DecisionContext) models.GateResult {
	limit := g.reg.Thresholds().VolatilityMaxRatio
	ratio := VolatilityRatio(ctx)
	if ratio <= limit {
		return pass(g.Name(), ratio, limit)
	}
	return fail(g.Name(), g.reg.ReasonCode(g.Name()), ratio, limit)
}

// VolatilityRatio returns ATR14/RV20. It is 1.0 when RV20 is zero, when
// either input is non-finite, or when market data is absent.
func VolatilityRatio(ctx models.DecisionContext) float64 {
	if ctx.Market == nil {
		return 1.0
	}
	stats := ctx.Market.Stats.Value
	if !isFinite(stats.ATR14) || !isFinite(stats.RV20) || stats.RV20 == 0 {
		return 1.0
	}
	return finite(stats.ATR14 / stats.RV20)
}

func isFinite(v float64) bool { return finite(v) == v }

var _ Gate = (*VolatilityGate)(nil)

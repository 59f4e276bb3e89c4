package gates

import (
	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// SpreadGate rejects signals on instruments quoted wider than the spread limit.
type SpreadGate struct {
	reg *rules.Registry
}

func NewSpreadGate(reg *rules.Registry) *SpreadGate { return &SpreadGate{reg: reg} }

func (g *SpreadGate) Name() string { return rules.GateSpread }

func (g *SpreadGate) Evaluate(ctx models.DecisionContext) models.GateResult {
	limit := g.reg.Thresholds().SpreadMaxBps
	spread := SpreadBps(ctx)
	if spread <= limit {
		return pass(g.Name(), spread, limit)
	}
	return fail(g.Name(), g.reg.ReasonCode(g.Name()), spread, limit)
}

// SpreadBps returns the normalized spread, 0 when market data is absent.
func SpreadBps(ctx models.DecisionContext) float64 {
	if ctx.Market == nil {
		return 0
	}
	return finite(ctx.Market.Liquidity.Value.SpreadBps)
}

var _ Gate = (*SpreadGate)(nil)

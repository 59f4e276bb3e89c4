package gates

import (
	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// GammaGate rejects signals trading against dealer gamma positioning.
type GammaGate struct {
	reg *rules.Registry
}

func NewGammaGate(reg *rules.Registry) *GammaGate { return &GammaGate{reg: reg} }

func (g *GammaGate) Name() string { return rules.GateGamma }

// Evaluate encodes alignment as observed value: 1 tailwind, 0 neutral, -1 headwind.
func (g *GammaGate) Evaluate(ctx models.DecisionContext) models.GateResult {
	alignment := GammaAlignment(ctx)
	if alignment >= 0 {
		return pass(g.Name(), alignment, 0)
	}
	return fail(g.Name(), g.reg.ReasonCode(g.Name()), alignment, 0)
}

// GammaBias returns the bias classification, NEUTRAL when unknown or absent.
func GammaBias(ctx models.DecisionContext) models.GammaBias {
	if ctx.Market == nil {
		return models.GammaNeutral
	}
	switch b := ctx.Market.Options.Value.GammaBias; b {
	case models.GammaBullish, models.GammaBearish:
		return b
	default:
		return models.GammaNeutral
	}
}

// GammaAlignment scores the bias against the signal direction.
func GammaAlignment(ctx models.DecisionContext) float64 {
	bias := GammaBias(ctx)
	if bias == models.GammaNeutral {
		return 0
	}
	switch ctx.Indicator.SignalType {
	case models.DirectionLong:
		if bias == models.GammaBearish {
			return -1
		}
		return 1
	case models.DirectionShort:
		if bias == models.GammaBullish {
			return -1
		}
		return 1
	default:
		return 0
	}
}

var _ Gate = (*GammaGate)(nil)

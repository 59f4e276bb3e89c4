package gates

import (
	"math"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// PhaseGate requires a minimum phase-oscillator magnitude. Absent phase fails.
type PhaseGate struct {
	reg *rules.Registry
}

func NewPhaseGate(reg *rules.Registry) *PhaseGate { return &PhaseGate{reg: reg} }

func (g *PhaseGate) Name() string { return rules.GatePhase }

func (g *PhaseGate) Evaluate(ctx models.DecisionContext) models.GateResult {
	limit := g.reg.Thresholds().PhaseMinAbs
	magnitude, ok := PhaseMagnitude(ctx)
	if !ok {
		return failNoValue(g.Name(), g.reg.ReasonCode(g.Name()), limit)
	}
	if magnitude >= limit {
		return pass(g.Name(), magnitude, limit)
	}
	return fail(g.Name(), g.reg.ReasonCode(g.Name()), magnitude, limit)
}

// PhaseMagnitude returns |phase| with non-finite values mapped to 0.
// ok is false when the indicator carried no phase.
func PhaseMagnitude(ctx models.DecisionContext) (float64, bool) {
	if ctx.Indicator.Phase == nil {
		return 0, false
	}
	return math.Abs(finite(*ctx.Indicator.Phase)), true
}

var _ Gate = (*PhaseGate)(nil)

package gates

import (
	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// SessionGate blocks signals outside regular trading hours.
type SessionGate struct {
	reg *rules.Registry
}

func NewSessionGate(reg *rules.Registry) *SessionGate { return &SessionGate{reg: reg} }

func (g *SessionGate) Name() string { return rules.GateSession }

// Evaluate reports 1 as observed value when the session is blocked.
func (g *SessionGate) Evaluate(ctx models.DecisionContext) models.GateResult {
	if ctx.Indicator.Session == models.SessionAfterHours {
		return fail(g.Name(), g.reg.ReasonCode(g.Name()), 1, 0)
	}
	return pass(g.Name(), 0, 0)
}

var _ Gate = (*SessionGate)(nil)

package usecase

import (
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/gates"
	"SignalGate/internal/rules"

	"github.com/shopspring/decimal"
)

// OrchestratorOption configures Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithClock replaces time.Now, for deterministic processing times in tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithGates overrides the registered gate set.
func WithGates(gs ...gates.Gate) OrchestratorOption {
	return func(o *Orchestrator) {
		o.gates = gs
	}
}

// Orchestrator runs every registered gate and combines the verdicts.
type Orchestrator struct {
	reg   *rules.Registry
	gates []gates.Gate
	now   func() time.Time
}

func NewOrchestrator(reg *rules.Registry, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{reg: reg, gates: gates.Standard(reg), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GateNames returns the registered gate names in evaluation order.
func (o *Orchestrator) GateNames() []string {
	out := make([]string, len(o.gates))
	for i, g := range o.gates {
		out[i] = g.Name()
	}
	return out
}

// Decide evaluates all gates with no early exit. The result is APPROVE iff
// every gate passed. For a given context the output is identical across calls
// except Audit.Timestamp and Audit.ProcessingTimeMs, which come from the
// clock; inject one with WithClock to pin them.
func (o *Orchestrator) Decide(dctx models.DecisionContext) models.DecisionOutput {
	start := o.now()

	results := make([]models.GateResult, 0, len(o.gates))
	summary := models.GateSummary{Passed: []string{}, Failed: []string{}}
	var reasons []string
	for _, g := range o.gates {
		r := g.Evaluate(dctx)
		results = append(results, r)
		if r.Passed {
			summary.Passed = append(summary.Passed, r.Name)
			continue
		}
		summary.Failed = append(summary.Failed, r.Name)
		reason := o.reg.ReasonCode(r.Name)
		if r.Reason != nil {
			reason = *r.Reason
		}
		reasons = append(reasons, fmt.Sprintf("%s: %s", r.Name, reason))
	}

	decision := models.DecisionApprove
	if len(summary.Failed) > 0 {
		decision = models.DecisionReject
	}

	confidence := 0.0
	if decision == models.DecisionApprove {
		confidence = o.Confidence(dctx)
	}

	elapsed := o.now().Sub(start)
	return models.DecisionOutput{
		Decision:      decision,
		Direction:     dctx.Indicator.SignalType,
		Confidence:    confidence,
		EngineVersion: o.reg.EngineVersion(),
		Gates:         summary,
		Reasons:       reasons,
		Audit: models.AuditTrail{
			Timestamp:        start.UnixMilli(),
			Symbol:           dctx.Indicator.Symbol,
			Session:          dctx.Indicator.Session,
			Context:          dctx.Clone(),
			GateResults:      results,
			ProcessingTimeMs: elapsed.Milliseconds(),
		},
	}
}

// Confidence is the base score plus the soft-condition boosts, clamped to
// the maximum and rounded to two decimals. It ignores gate verdicts.
func (o *Orchestrator) Confidence(dctx models.DecisionContext) float64 {
	cr := o.reg.Confidence()
	c := cr.Base
	if mag, ok := gates.PhaseMagnitude(dctx); ok && mag >= cr.PhaseBoostMinAbs {
		c += cr.PhaseBoost
	}
	if dctx.Market != nil && gates.SpreadBps(dctx) <= cr.TightSpreadMaxBps {
		c += cr.TightSpreadBoost
	}
	if c > cr.Max {
		c = cr.Max
	}
	if c < 0 {
		c = 0
	}
	return decimal.NewFromFloat(c).Round(2).InexactFloat64()
}

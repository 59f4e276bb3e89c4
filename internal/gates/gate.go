// Package gates implements the independent risk gates a signal must pass.
package gates

import (
	"math"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"
)

// Gate is a pure, total evaluator of one risk dimension.
type Gate interface {
	Name() string
	Evaluate(ctx models.DecisionContext) models.GateResult
}

// Standard returns the five production gates in registration order.
func Standard(reg *rules.Registry) []Gate {
	byName := map[string]Gate{
		rules.GateSpread:     NewSpreadGate(reg),
		rules.GateVolatility: NewVolatilityGate(reg),
		rules.GateGamma:      NewGammaGate(reg),
		rules.GatePhase:      NewPhaseGate(reg),
		rules.GateSession:    NewSessionGate(reg),
	}
	out := make([]Gate, 0, len(byName))
	for _, name := range reg.GateNames() {
		if g, ok := byName[name]; ok {
			out = append(out, g)
		}
	}
	return out
}

// finite maps NaN and ±Inf to 0.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func pass(name string, observed, threshold float64) models.GateResult {
	return models.GateResult{
		Name:      name,
		Passed:    true,
		Observed:  &observed,
		Threshold: &threshold,
	}
}

func fail(name, reason string, observed, threshold float64) models.GateResult {
	return models.GateResult{
		Name:      name,
		Passed:    false,
		Reason:    &reason,
		Observed:  &observed,
		Threshold: &threshold,
	}
}

// failNoValue is used when the gate input is missing entirely.
func failNoValue(name, reason string, threshold float64) models.GateResult {
	return models.GateResult{
		Name:      name,
		Passed:    false,
		Reason:    &reason,
		Threshold: &threshold,
	}
}

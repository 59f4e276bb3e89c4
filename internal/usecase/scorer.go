package usecase

import (
	"strings"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/gates"
	"SignalGate/internal/rules"

	"github.com/shopspring/decimal"
)

// Regime labels.
const (
	RegimeHigh   = "HIGH"
	RegimeNormal = "NORMAL"
	RegimeLow    = "LOW"
	RegimeDeep   = "DEEP"
	RegimeThin   = "THIN"
)

// Scorer derives the ledger-only annotations of a decision: confluence,
// regime and the sizing breakdown. None of them affect APPROVE/REJECT.
type Scorer struct {
	reg *rules.Registry
}

func NewScorer(reg *rules.Registry) *Scorer { return &Scorer{reg: reg} }

// Confluence is the weighted factor sum scaled to 0-100, two decimals.
func (s *Scorer) Confluence(dctx models.DecisionContext) decimal.Decimal {
	w := s.reg.Confluence()
	th := s.reg.Thresholds()
	cr := s.reg.Confidence()

	ai := clamp01(dctx.Indicator.AIScore / 10)
	phase := 0.0
	if mag, ok := gates.PhaseMagnitude(dctx); ok {
		phase = clamp01(mag / 100)
	}
	gamma := (gates.GammaAlignment(dctx) + 1) / 2

	trend := 0.5
	liquidity := 0.0
	if dctx.Market != nil {
		trend = trendAlignment(dctx.Market.Stats.Value.Trend, dctx.Indicator.SignalType)
		switch spread := gates.SpreadBps(dctx); {
		case spread <= cr.TightSpreadMaxBps:
			liquidity = 1
		case spread <= th.SpreadMaxBps:
			liquidity = 0.5
		}
	}

	score := w.AIScore*ai + w.Phase*phase + w.Gamma*gamma + w.Trend*trend + w.Liquidity*liquidity
	return decimal.NewFromFloat(score * 100).Round(2)
}

// Regime buckets the market context into categorical labels.
func (s *Scorer) Regime(dctx models.DecisionContext) models.Regime {
	sz := s.reg.Sizing()
	th := s.reg.Thresholds()
	cr := s.reg.Confidence()

	out := models.Regime{
		Volatility: RegimeNormal,
		Trend:      string(models.TrendSideways),
		Liquidity:  RegimeNormal,
		IVRank:     DefaultOptions().IVRank,
	}
	switch ratio := gates.VolatilityRatio(dctx); {
	case ratio > sz.HighVolatilityRatio:
		out.Volatility = RegimeHigh
	case ratio < sz.LowVolatilityRatio:
		out.Volatility = RegimeLow
	}
	if dctx.Market == nil {
		return out
	}
	if t := dctx.Market.Stats.Value.Trend; t != "" {
		out.Trend = string(t)
	}
	switch spread := gates.SpreadBps(dctx); {
	case spread <= cr.TightSpreadMaxBps:
		out.Liquidity = RegimeDeep
	case spread > th.SpreadMaxBps:
		out.Liquidity = RegimeThin
	}
	out.IVRank = dctx.Market.Options.Value.IVRank
	return out
}

// Breakdown multiplies confluence, quality and regime into the final sizing
// multiplier. The final multiplier is 0 for a rejected decision.
func (s *Scorer) Breakdown(out models.DecisionOutput, confluence decimal.Decimal, regime models.Regime) models.DecisionBreakdown {
	sz := s.reg.Sizing()
	cr := s.reg.Confidence()

	confluenceMult := confluence.Div(decimal.NewFromInt(100)).InexactFloat64()
	qualityMult := sz.Quality[string(out.Audit.Context.Indicator.Quality)]
	regimeMult := 1.0
	if regime.Volatility == RegimeHigh {
		regimeMult = sz.HighVolatilityRegime
	}

	final := 0.0
	if out.Approved() {
		final = decimal.NewFromFloat(confluenceMult * qualityMult * regimeMult).Round(4).InexactFloat64()
	}

	var boosts []models.Boost
	if out.Approved() {
		dctx := out.Audit.Context
		if mag, ok := gates.PhaseMagnitude(dctx); ok && mag >= cr.PhaseBoostMinAbs {
			boosts = append(boosts, models.Boost{Name: "phase", Value: cr.PhaseBoost})
		}
		if dctx.Market != nil && gates.SpreadBps(dctx) <= cr.TightSpreadMaxBps {
			boosts = append(boosts, models.Boost{Name: "tight_spread", Value: cr.TightSpreadBoost})
		}
	}

	return models.DecisionBreakdown{
		ConfluenceMultiplier: confluenceMult,
		QualityMultiplier:    qualityMult,
		RegimeMultiplier:     regimeMult,
		FinalMultiplier:      final,
		BaseConfidence:       cr.Base,
		Boosts:               boosts,
		Confidence:           out.Confidence,
	}
}

// DecisionReason summarizes the verdict for the ledger row.
func DecisionReason(out models.DecisionOutput) string {
	if len(out.Gates.Failed) == 0 {
		return "all gates passed"
	}
	return "failed: " + strings.Join(out.Gates.Failed, ", ")
}

func trendAlignment(t models.Trend, dir models.Direction) float64 {
	switch {
	case t == models.TrendUp && dir == models.DirectionLong,
		t == models.TrendDown && dir == models.DirectionShort:
		return 1
	case t == models.TrendUp || t == models.TrendDown:
		return 0
	default:
		return 0.5
	}
}

func clamp01(v float64) float64 {
	switch {
	case v != v, v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

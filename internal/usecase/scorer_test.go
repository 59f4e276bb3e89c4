package usecase

import (
	"testing"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConfluence(t *testing.T) {
	s := NewScorer(rules.Default())

	c := s.Confluence(passingContext())
	assert.True(t, decimal.NewFromInt(79).Equal(c), c.String())

	against := passingContext()
	against.Market.Options.Value.GammaBias = models.GammaBearish
	against.Market.Stats.Value.Trend = models.TrendDown
	c = s.Confluence(against)
	assert.True(t, decimal.RequireFromString("49").Equal(c), c.String())

	empty := s.Confluence(models.DecisionContext{})
	assert.True(t, decimal.RequireFromString("15").Equal(empty), empty.String())
}

func TestRegime(t *testing.T) {
	s := NewScorer(rules.Default())

	r := s.Regime(passingContext())
	assert.Equal(t, models.Regime{Volatility: RegimeNormal, Trend: "UP", Liquidity: RegimeNormal, IVRank: 35}, r)

	hot := passingContext()
	hot.Market.Stats.Value.ATR14 = 1.8
	hot.Market.Liquidity.Value.SpreadBps = 4
	r = s.Regime(hot)
	assert.Equal(t, RegimeHigh, r.Volatility)
	assert.Equal(t, RegimeDeep, r.Liquidity)

	calm := passingContext()
	calm.Market.Stats.Value.ATR14 = 0.5
	calm.Market.Liquidity.Value.SpreadBps = 20
	r = s.Regime(calm)
	assert.Equal(t, RegimeLow, r.Volatility)
	assert.Equal(t, RegimeThin, r.Liquidity)

	r = s.Regime(models.DecisionContext{})
	assert.Equal(t, RegimeNormal, r.Volatility)
	assert.Equal(t, "SIDEWAYS", r.Trend)
	assert.Equal(t, 50.0, r.IVRank)
}

func TestBreakdown(t *testing.T) {
	reg := rules.Default()
	s := NewScorer(reg)
	o := NewOrchestrator(reg)

	dctx := passingContext()
	dctx.Indicator.Phase = ptr(-85)
	dctx.Indicator.Quality = models.QualityMedium
	dctx.Market.Liquidity.Value.SpreadBps = 3
	out := o.Decide(dctx)
	conf := s.Confluence(dctx)
	b := s.Breakdown(out, conf, s.Regime(dctx))

	assert.Equal(t, 0.75, b.QualityMultiplier)
	assert.Equal(t, 1.0, b.RegimeMultiplier)
	assert.InDelta(t, conf.InexactFloat64()/100*0.75, b.FinalMultiplier, 1e-4)
	assert.Equal(t, 7.0, b.BaseConfidence)
	assert.Equal(t, 7.8, b.Confidence)
	assert.Equal(t, []models.Boost{{Name: "phase", Value: 0.5}, {Name: "tight_spread", Value: 0.3}}, b.Boosts)
}

func TestBreakdownRejectedIsZero(t *testing.T) {
	reg := rules.Default()
	s := NewScorer(reg)

	dctx := passingContext()
	dctx.Indicator.Session = models.SessionAfterHours
	out := NewOrchestrator(reg).Decide(dctx)
	b := s.Breakdown(out, s.Confluence(dctx), s.Regime(dctx))

	assert.Zero(t, b.FinalMultiplier)
	assert.Zero(t, b.Confidence)
	assert.Empty(t, b.Boosts)
	assert.Greater(t, b.ConfluenceMultiplier, 0.0)
}

func TestDecisionReason(t *testing.T) {
	assert.Equal(t, "all gates passed", DecisionReason(models.DecisionOutput{}))
	out := models.DecisionOutput{Gates: models.GateSummary{Failed: []string{"spread", "session"}}}
	assert.Equal(t, "failed: spread, session", DecisionReason(out))
}

package usecase

import (
	"math"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	"SignalGate/internal/rules"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(rules.Default(), WithClock(fixedClock(time.UnixMilli(1_700_000_000_000), 3*time.Millisecond)))
}

func TestDecideApprovesPassingContext(t *testing.T) {
	out := newTestOrchestrator().Decide(passingContext())

	assert.Equal(t, models.DecisionApprove, out.Decision)
	assert.Equal(t, models.DirectionLong, out.Direction)
	assert.Equal(t, 7.0, out.Confidence)
	assert.Equal(t, rules.EngineVersion, out.EngineVersion)
	assert.Empty(t, out.Gates.Failed)
	assert.Empty(t, out.Reasons)
	assert.Equal(t, []string{"spread", "volatility", "gamma", "phase", "session"}, out.Gates.Passed)
	assert.EqualValues(t, 3, out.Audit.ProcessingTimeMs)
	assert.Equal(t, int64(1_700_000_000_000), out.Audit.Timestamp)
	assert.Equal(t, "SPY", out.Audit.Symbol)
	assert.Equal(t, models.SessionOpen, out.Audit.Session)
}

func TestDecideIsDeterministic(t *testing.T) {
	a := newTestOrchestrator().Decide(passingContext())
	b := newTestOrchestrator().Decide(passingContext())
	assert.Equal(t, a, b)

	rej := passingContext()
	rej.Indicator.Session = models.SessionAfterHours
	assert.Equal(t, newTestOrchestrator().Decide(rej), newTestOrchestrator().Decide(rej))
}

func TestDecideWallClockOnlyVariesAuditTiming(t *testing.T) {
	o := NewOrchestrator(rules.Default())
	a := o.Decide(passingContext())
	time.Sleep(2 * time.Millisecond)
	b := o.Decide(passingContext())

	for _, out := range []*models.DecisionOutput{&a, &b} {
		out.Audit.Timestamp = 0
		out.Audit.ProcessingTimeMs = 0
	}
	assert.Equal(t, a, b)
}

func TestDecideVolatilityBoundary(t *testing.T) {
	tests := []struct {
		name     string
		atr, rv  float64
		decision models.Decision
	}{
		{"ratio exactly at limit passes", 2.0, 1.0, models.DecisionApprove},
		{"ratio above limit rejects", 2.01, 1.0, models.DecisionReject},
		{"zero rv forces ratio 1", 50, 0, models.DecisionApprove},
		{"nan atr forces ratio 1", math.NaN(), 1, models.DecisionApprove},
		{"infinite rv forces ratio 1", 3, math.Inf(1), models.DecisionApprove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dctx := passingContext()
			dctx.Market.Stats = models.FromAPI(models.MarketStats{ATR14: tt.atr, RV20: tt.rv, Trend: models.TrendUp})
			out := newTestOrchestrator().Decide(dctx)
			assert.Equal(t, tt.decision, out.Decision)
			if tt.decision == models.DecisionReject {
				assert.Equal(t, []string{"volatility"}, out.Gates.Failed)
				assert.Equal(t, []string{"volatility: VOLATILITY_SPIKE"}, out.Reasons)
				assert.Zero(t, out.Confidence)
			}
		})
	}
}

func TestConfidenceComposition(t *testing.T) {
	tests := []struct {
		name   string
		phase  float64
		spread float64
		want   float64
	}{
		{"no boosts", 70, 8, 7.0},
		{"phase boost only", -80, 8, 7.5},
		{"spread boost only", 70, 5, 7.3},
		{"both boosts", 85, 4, 7.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dctx := passingContext()
			dctx.Indicator.Phase = ptr(tt.phase)
			dctx.Market.Liquidity = models.FromAPI(models.LiquidityData{SpreadBps: tt.spread})
			out := newTestOrchestrator().Decide(dctx)
			require.Equal(t, models.DecisionApprove, out.Decision)
			assert.Equal(t, tt.want, out.Confidence)
			assert.LessOrEqual(t, out.Confidence, 10.0)
		})
	}
}

func TestConfidenceClampedToMax(t *testing.T) {
	spec := rules.DefaultSpec()
	spec.Confidence.Base = 9.9
	o := NewOrchestrator(rules.MustNew(spec))

	dctx := passingContext()
	dctx.Indicator.Phase = ptr(95)
	dctx.Market.Liquidity = models.FromAPI(models.LiquidityData{SpreadBps: 1})
	assert.Equal(t, 10.0, o.Decide(dctx).Confidence)
}

func TestDecideRunsEveryGateWithoutEarlyExit(t *testing.T) {
	dctx := passingContext()
	dctx.Indicator.Phase = nil
	dctx.Indicator.Session = models.SessionAfterHours
	dctx.Market.Liquidity = models.FromFallback(DefaultLiquidity(), nil)
	dctx.Market.Options = models.FromAPI(models.OptionsData{GammaBias: models.GammaBearish})

	out := newTestOrchestrator().Decide(dctx)
	assert.Equal(t, models.DecisionReject, out.Decision)
	assert.Zero(t, out.Confidence)
	assert.Equal(t, []string{"spread", "gamma", "phase", "session"}, out.Gates.Failed)
	assert.Equal(t, []string{
		"spread: SPREAD_TOO_WIDE",
		"gamma: GAMMA_HEADWIND",
		"phase: PHASE_CONFIDENCE_LOW",
		"session: AFTERHOURS_BLOCKED",
	}, out.Reasons)
}

func TestDecideCompleteness(t *testing.T) {
	contexts := []models.DecisionContext{passingContext(), {}}
	for _, session := range []models.Session{models.SessionOpen, models.SessionAfterHours} {
		for _, phase := range []*float64{nil, ptr(10), ptr(-90)} {
			for _, spread := range []float64{0, 12, 12.01, math.NaN()} {
				dctx := passingContext()
				dctx.Indicator.Session = session
				dctx.Indicator.Phase = phase
				dctx.Market.Liquidity = models.FromAPI(models.LiquidityData{SpreadBps: spread})
				contexts = append(contexts, dctx)
			}
		}
	}

	o := newTestOrchestrator()
	for _, dctx := range contexts {
		out := o.Decide(dctx)
		require.Len(t, out.Audit.GateResults, len(rules.Default().GateNames()))
		assert.Equal(t, len(out.Gates.Passed)+len(out.Gates.Failed), len(out.Audit.GateResults))
		if out.Decision == models.DecisionReject {
			assert.NotEmpty(t, out.Gates.Failed)
			assert.Zero(t, out.Confidence)
		} else {
			assert.Empty(t, out.Gates.Failed)
		}
		for _, r := range out.Audit.GateResults {
			assert.Equal(t, !r.Passed, r.Reason != nil, r.Name)
		}
	}
}

func TestAuditSnapshotIsIndependent(t *testing.T) {
	dctx := passingContext()
	out := newTestOrchestrator().Decide(dctx)

	*dctx.Indicator.Phase = -1
	dctx.Market.Liquidity.Value.SpreadBps = 500

	assert.Equal(t, 70.0, *out.Audit.Context.Indicator.Phase)
	assert.Equal(t, 8.0, out.Audit.Context.Market.Liquidity.Value.SpreadBps)
}

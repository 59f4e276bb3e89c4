package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/repository"
	"SignalGate/internal/rules"
	"SignalGate/internal/service/ratelimit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(ledger domrepo.Ledger, m *countingMetrics) *DecisionService {
	if m == nil {
		m = newCountingMetrics()
	}
	reg := rules.Default()
	builder := NewContextBuilder(
		stubOptions{data: models.OptionsData{GammaBias: models.GammaBullish, IVRank: 35}},
		stubStats{data: models.MarketStats{ATR14: 1.2, RV20: 1.0, Trend: models.TrendUp}},
		stubLiquidity{data: models.LiquidityData{SpreadBps: 8}},
		allTimeouts(time.Second), m,
	)
	return NewDecisionService(reg, builder, NewOrchestrator(reg), NewScorer(reg), ledger, m)
}

func TestEvaluateApprovesAndAudits(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedger(nil)
	pub := &recordingPublisher{}
	m := newCountingMetrics()
	svc := newTestService(ledger, m)
	svc.SetPublisher(pub)

	res, err := svc.Evaluate(ctx, passingSignal())
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApprove, res.Output.Decision)
	assert.Equal(t, 7.0, res.Output.Confidence)
	assert.True(t, res.Audited)
	assert.Empty(t, res.AuditError)
	require.NotEmpty(t, res.LedgerID)

	entries, err := ledger.Query(ctx, models.LedgerFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	got := entries[0]
	assert.Equal(t, res.LedgerID, got.ID)
	assert.Equal(t, models.LedgerApprove, got.Decision)
	assert.Equal(t, "SPY", got.Signal.Ticker)
	assert.Equal(t, rules.EngineVersion, got.EngineVersion)
	assert.True(t, decimal.NewFromInt(79).Equal(got.ConfluenceScore), got.ConfluenceScore.String())
	assert.Equal(t, "all gates passed", got.DecisionReason)
	assert.Positive(t, got.CreatedAt)

	require.Len(t, pub.entries, 1)
	assert.Equal(t, res.LedgerID, pub.entries[0].ID)
	assert.Equal(t, 1, m.decisions[models.DecisionApprove])
	assert.Equal(t, 1, m.appends)
	assert.Zero(t, m.appendErr)
}

func TestEvaluateRejectIsAudited(t *testing.T) {
	ctx := context.Background()
	ledger := repository.NewMemoryLedger(nil)
	svc := newTestService(ledger, nil)

	sig := passingSignal()
	sig.PhaseContext = nil
	res, err := svc.Evaluate(ctx, sig)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionReject, res.Output.Decision)
	assert.Zero(t, res.Output.Confidence)
	assert.Equal(t, []string{"phase"}, res.Output.Gates.Failed)
	assert.True(t, res.Audited)

	n, err := ledger.Count(ctx, models.LedgerFilter{Decision: models.LedgerReject})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, _ := ledger.Query(ctx, models.LedgerFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, "failed: phase", entries[0].DecisionReason)
	assert.Zero(t, entries[0].DecisionBreakdown.FinalMultiplier)
}

func TestEvaluateLedgerFailureReturnsUnauditedDecision(t *testing.T) {
	buf := &recordingBuffer{}
	pub := &recordingPublisher{}
	m := newCountingMetrics()
	svc := newTestService(failingLedger{}, m)
	svc.SetRetryBuffer(buf)
	svc.SetPublisher(pub)

	res, err := svc.Evaluate(context.Background(), passingSignal())
	require.NoError(t, err)
	assert.Equal(t, models.DecisionApprove, res.Output.Decision)
	assert.False(t, res.Audited)
	assert.Empty(t, res.LedgerID)
	assert.Contains(t, res.AuditError, "connection refused")

	require.Len(t, buf.entries, 1)
	assert.Empty(t, buf.entries[0].ID, "buffered entry must be re-appendable")
	assert.Equal(t, models.LedgerApprove, buf.entries[0].Decision)
	assert.Empty(t, pub.entries, "unaudited decisions are not published")
	assert.Equal(t, 1, m.appendErr)
}

func TestEvaluateRetryBufferReplays(t *testing.T) {
	buf := &recordingBuffer{}
	svc := newTestService(failingLedger{}, nil)
	svc.SetRetryBuffer(buf)
	_, err := svc.Evaluate(context.Background(), passingSignal())
	require.NoError(t, err)
	require.Len(t, buf.entries, 1)

	ledger := repository.NewMemoryLedger(nil)
	pub := &recordingPublisher{}
	job := NewLedgerRetryJob(ledger, pub, nil, nil)
	require.NoError(t, job.Handle(context.Background(), buf.entries[0]))

	n, _ := ledger.Count(context.Background(), models.LedgerFilter{})
	assert.EqualValues(t, 1, n)
	require.Len(t, pub.entries, 1)
	assert.NotEmpty(t, pub.entries[0].ID)
}

func TestEvaluateRejectsInvalidSignal(t *testing.T) {
	ledger := repository.NewMemoryLedger(nil)
	svc := newTestService(ledger, nil)

	tests := []struct {
		name   string
		mutate func(*models.Signal)
	}{
		{"missing ticker", func(s *models.Signal) { s.Ticker = "" }},
		{"bad direction", func(s *models.Signal) { s.Signal.Type = "FLAT" }},
		{"zero price", func(s *models.Signal) { s.Price = 0 }},
		{"ai score above range", func(s *models.Signal) { s.Signal.AIScore = 10.5 }},
		{"phase below range", func(s *models.Signal) { s.PhaseContext.Phase = ptr(-101) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := passingSignal()
			tt.mutate(&sig)
			res, err := svc.Evaluate(context.Background(), sig)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrInvalidSignal), err)
		})
	}

	n, _ := ledger.Count(context.Background(), models.LedgerFilter{})
	assert.Zero(t, n, "invalid signals never reach the ledger")
}

func TestEvaluateRateLimitsPerTicker(t *testing.T) {
	svc := newTestService(repository.NewMemoryLedger(nil), nil)
	svc.SetLimiter(ratelimit.New(1, 2))

	for i := 0; i < 2; i++ {
		_, err := svc.Evaluate(context.Background(), passingSignal())
		require.NoError(t, err)
	}
	_, err := svc.Evaluate(context.Background(), passingSignal())
	assert.ErrorIs(t, err, ErrRateLimited)

	lower := passingSignal()
	lower.Ticker = "spy"
	_, err = svc.Evaluate(context.Background(), lower)
	assert.ErrorIs(t, err, ErrRateLimited, "tickers share a bucket regardless of case")

	other := passingSignal()
	other.Ticker = "QQQ"
	_, err = svc.Evaluate(context.Background(), other)
	assert.NoError(t, err)
}

func TestEvaluateStoresNormalizedTicker(t *testing.T) {
	ledger := repository.NewMemoryLedger(nil)
	svc := newTestService(ledger, nil)

	sig := passingSignal()
	sig.Ticker = " spy "
	res, err := svc.Evaluate(context.Background(), sig)
	require.NoError(t, err)
	require.True(t, res.Audited)

	rows, err := ledger.Query(context.Background(), models.LedgerFilter{Ticker: "SPY"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SPY", rows[0].Signal.Ticker)
	assert.Equal(t, res.LedgerID, rows[0].ID)
}

func TestEvaluateProviderOutageStillDecides(t *testing.T) {
	reg := rules.Default()
	builder := NewContextBuilder(nil, nil, nil, ProviderTimeouts{}, nil)
	ledger := repository.NewMemoryLedger(nil)
	svc := NewDecisionService(reg, builder, NewOrchestrator(reg), NewScorer(reg), ledger, nil)

	res, err := svc.Evaluate(context.Background(), passingSignal())
	require.NoError(t, err)
	assert.Equal(t, models.DecisionReject, res.Output.Decision)
	assert.Contains(t, res.Output.Gates.Failed, "spread")
	assert.True(t, res.Audited)

	entries, _ := ledger.Query(context.Background(), models.LedgerFilter{})
	require.Len(t, entries, 1)
	assert.Equal(t, RegimeThin, entries[0].Regime.Liquidity)
	assert.Equal(t, 50.0, entries[0].Regime.IVRank)
}

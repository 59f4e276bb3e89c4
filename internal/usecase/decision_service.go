package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/rules"
	"SignalGate/pkg/logger"
	pkgmetrics "SignalGate/pkg/metrics"
)

var (
	// ErrInvalidSignal marks a signal outside the registry validation ranges.
	ErrInvalidSignal = errors.New("invalid signal")
	// ErrRateLimited is returned when the ticker exhausted its intake budget.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Limiter grants or refuses intake per key.
type Limiter interface {
	Allow(key string) bool
}

// DecisionService runs the full decision workflow for one signal: context
// building, gate evaluation, scoring, ledger append and event publication.
type DecisionService struct {
	reg       *rules.Registry
	builder   *ContextBuilder
	orch      *Orchestrator
	scorer    *Scorer
	ledger    domrepo.Ledger
	metrics   domrepo.Metrics
	publisher domrepo.DecisionPublisher
	retry     domrepo.RetryBuffer
	limiter   Limiter
	l         *logger.Logger
}

func NewDecisionService(
	reg *rules.Registry,
	builder *ContextBuilder,
	orch *Orchestrator,
	scorer *Scorer,
	ledger domrepo.Ledger,
	metrics domrepo.Metrics,
) *DecisionService {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &DecisionService{
		reg:     reg,
		builder: builder,
		orch:    orch,
		scorer:  scorer,
		ledger:  ledger,
		metrics: metrics,
		l:       logger.NewNop(),
	}
}

func (s *DecisionService) SetLogger(l *logger.Logger) {
	if l != nil {
		s.l = l
	}
}

// SetPublisher enables decision events. Publish failures are logged only.
func (s *DecisionService) SetPublisher(p domrepo.DecisionPublisher) { s.publisher = p }

// SetRetryBuffer enables buffering of entries whose append failed.
func (s *DecisionService) SetRetryBuffer(b domrepo.RetryBuffer) { s.retry = b }

// SetLimiter enables per-ticker intake limiting.
func (s *DecisionService) SetLimiter(l Limiter) { s.limiter = l }

// Evaluate decides on sig. A ledger failure does not fail the call: the
// result comes back with Audited=false and AuditError set. Errors are
// returned only for rejected input (ErrInvalidSignal, ErrRateLimited).
func (s *DecisionService) Evaluate(ctx context.Context, sig models.Signal) (*models.DecisionResult, error) {
	sig.Ticker = models.NormalizeTicker(sig.Ticker)
	if err := s.Validate(sig); err != nil {
		s.metrics.RecordError("invalid_signal")
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(sig.Ticker) {
		s.metrics.RecordError("rate_limited")
		return nil, fmt.Errorf("%w for %s", ErrRateLimited, sig.Ticker)
	}

	start := time.Now()
	dctx := s.builder.Build(ctx, sig)
	out := s.orch.Decide(dctx)
	s.record(out)

	entry := s.Entry(sig, out)
	res := &models.DecisionResult{Output: out}

	stored, err := s.ledger.Append(ctx, entry)
	s.metrics.RecordLedgerAppend(backendName(s.ledger), err)
	if err != nil {
		res.AuditError = err.Error()
		s.l.Error("ledger append failed, decision unaudited",
			logger.String("symbol", sig.Ticker),
			logger.String("decision", string(out.Decision)),
			logger.Error(err),
		)
		s.buffer(ctx, entry)
	} else {
		res.Audited = true
		res.LedgerID = stored.ID
		s.publish(ctx, stored)
	}

	s.metrics.RecordLatency("decision", time.Since(start).Seconds())
	s.l.Info("signal decided",
		logger.String("symbol", sig.Ticker),
		logger.String("direction", string(out.Direction)),
		logger.String("decision", string(out.Decision)),
		logger.Float64("confidence", out.Confidence),
		logger.Strings("failed_gates", out.Gates.Failed),
		logger.Int64("processing_time_ms", out.Audit.ProcessingTimeMs),
		logger.Bool("audited", res.Audited),
	)
	return res, nil
}

// Validate checks sig against the registry validation ranges.
func (s *DecisionService) Validate(sig models.Signal) error {
	v := s.reg.Validation()
	switch {
	case sig.Ticker == "":
		return fmt.Errorf("%w: ticker is required", ErrInvalidSignal)
	case !sig.Signal.Type.Valid():
		return fmt.Errorf("%w: type must be LONG or SHORT, got %q", ErrInvalidSignal, sig.Signal.Type)
	case math.IsNaN(sig.Price) || sig.Price <= v.PriceMin:
		return fmt.Errorf("%w: price must be greater than %v", ErrInvalidSignal, v.PriceMin)
	case math.IsNaN(sig.Signal.AIScore) || sig.Signal.AIScore < v.AIScoreMin || sig.Signal.AIScore > v.AIScoreMax:
		return fmt.Errorf("%w: ai_score must be within [%v, %v]", ErrInvalidSignal, v.AIScoreMin, v.AIScoreMax)
	}
	if pc := sig.PhaseContext; pc != nil && pc.Phase != nil {
		if p := *pc.Phase; math.IsNaN(p) || p < v.PhaseMin || p > v.PhaseMax {
			return fmt.Errorf("%w: phase must be within [%v, %v]", ErrInvalidSignal, v.PhaseMin, v.PhaseMax)
		}
	}
	return nil
}

// Entry builds the ledger row for a decision.
func (s *DecisionService) Entry(sig models.Signal, out models.DecisionOutput) models.LedgerEntry {
	dctx := out.Audit.Context
	confluence := s.scorer.Confluence(dctx)
	regime := s.scorer.Regime(dctx)
	return models.LedgerEntry{
		EngineVersion:     out.EngineVersion,
		Signal:            sig,
		PhaseContext:      sig.PhaseContext,
		Decision:          models.LedgerDecision(out.Decision),
		DecisionReason:    DecisionReason(out),
		DecisionBreakdown: s.scorer.Breakdown(out, confluence, regime),
		ConfluenceScore:   confluence,
		Regime:            regime,
	}
}

func (s *DecisionService) record(out models.DecisionOutput) {
	s.metrics.RecordDecision(out.Decision, out.Audit.Symbol)
	for _, r := range out.Audit.GateResults {
		s.metrics.RecordGate(r.Name, r.Passed)
	}
}

func (s *DecisionService) buffer(ctx context.Context, entry models.LedgerEntry) {
	if s.retry == nil {
		return
	}
	if err := s.retry.Buffer(context.WithoutCancel(ctx), entry); err != nil {
		s.metrics.RecordError("ledger_retry_buffer")
		s.l.Error("ledger retry buffer failed",
			logger.String("symbol", entry.Signal.Ticker),
			logger.Error(err),
		)
	}
}

func (s *DecisionService) publish(ctx context.Context, entry models.LedgerEntry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, entry); err != nil {
		s.metrics.RecordError("decision_publish")
		s.l.Warn("decision event publish failed",
			logger.String("ledger_id", entry.ID),
			logger.Error(err),
		)
	}
}

// backendName labels ledger metrics. Backends may expose Backend().
func backendName(l domrepo.Ledger) string {
	if b, ok := l.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return "unknown"
}

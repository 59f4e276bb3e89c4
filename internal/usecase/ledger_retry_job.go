package usecase

import (
	"context"
	"fmt"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/pkg/logger"
	pkgmetrics "SignalGate/pkg/metrics"
	"SignalGate/pkg/queue"
)

// LedgerAppendMessageType is the queue message type of buffered ledger entries.
const LedgerAppendMessageType = "ledger.append"

// LedgerRetryJob re-appends entries whose first append failed. Failures are
// retried by the queue and end in its dead letter list.
type LedgerRetryJob struct {
	ledger    domrepo.Ledger
	publisher domrepo.DecisionPublisher
	metrics   domrepo.Metrics
	l         *logger.Logger
}

func NewLedgerRetryJob(ledger domrepo.Ledger, publisher domrepo.DecisionPublisher, metrics domrepo.Metrics, l *logger.Logger) *LedgerRetryJob {
	if l == nil {
		l = logger.NewNop()
	}
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &LedgerRetryJob{ledger: ledger, publisher: publisher, metrics: metrics, l: l}
}

func (j *LedgerRetryJob) Name() string { return "ledger_retry" }
func (j *LedgerRetryJob) Type() string { return LedgerAppendMessageType }

func (j *LedgerRetryJob) Handle(ctx context.Context, payload interface{}) error {
	entry, err := queue.ParsePayload[models.LedgerEntry](payload)
	if err != nil {
		return err
	}
	stored, err := j.ledger.Append(ctx, *entry)
	j.metrics.RecordLedgerAppend(backendName(j.ledger), err)
	if err != nil {
		return fmt.Errorf("re-append ledger entry: %w", err)
	}
	j.l.Info("buffered decision audited",
		logger.String("ledger_id", stored.ID),
		logger.String("symbol", stored.Signal.Ticker),
	)
	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, stored); err != nil {
			j.l.Warn("decision event publish failed", logger.String("ledger_id", stored.ID), logger.Error(err))
		}
	}
	return nil
}

var _ queue.Job = (*LedgerRetryJob)(nil)

package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	xhttp "SignalGate/pkg/http"
	pkgkafka "SignalGate/pkg/kafka"
	"SignalGate/pkg/logger"
	pkgmetrics "SignalGate/pkg/metrics"
)

// KafkaSignalHandler feeds signals from a Kafka topic into the decision workflow.
type KafkaSignalHandler struct {
	topic   string
	svc     *DecisionService
	metrics domrepo.Metrics
	l       *logger.Logger
}

func NewKafkaSignalHandler(topic string, svc *DecisionService, metrics domrepo.Metrics) *KafkaSignalHandler {
	if metrics == nil {
		metrics = pkgmetrics.Nop{}
	}
	return &KafkaSignalHandler{topic: topic, svc: svc, metrics: metrics, l: logger.NewNop()}
}

func (h *KafkaSignalHandler) SetLogger(l *logger.Logger) {
	if l != nil {
		h.l = l
	}
}

func (h *KafkaSignalHandler) Topic() string { return h.topic }

// Handle decodes and validates one webhook-shaped payload. Malformed or
// rate-limited signals are dropped; only unexpected failures are returned
// so the consumer retries them.
func (h *KafkaSignalHandler) Handle(ctx context.Context, b []byte) error {
	var req models.WebhookSignalRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		h.l.Warn("dropping undecodable signal", logger.Error(err))
		return nil
	}
	if verrs := xhttp.ValidateStruct(ctx, &req); len(verrs) > 0 {
		h.metrics.RecordError("consumer_validation")
		h.l.Warn("dropping invalid signal",
			logger.String("ticker", req.Ticker),
			logger.Any("errors", verrs),
		)
		return nil
	}

	_, err := h.svc.Evaluate(ctx, req.ToSignal())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrInvalidSignal):
		h.l.Warn("dropping signal", logger.String("ticker", req.Ticker), logger.Error(err))
		return nil
	default:
		return err
	}
}

var _ pkgkafka.MessageHandler = (*KafkaSignalHandler)(nil)

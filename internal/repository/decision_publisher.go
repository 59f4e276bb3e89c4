package repository

import (
	"context"
	"fmt"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	pkgkafka "SignalGate/pkg/kafka"
	"SignalGate/pkg/logger"
)

// EventProducer is the subset of pkg/kafka.Producer the publishers use.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

var _ EventProducer = (*pkgkafka.Producer)(nil)

// KafkaDecisionPublisher emits one event per audited decision, keyed by ticker.
type KafkaDecisionPublisher struct {
	producer EventProducer
	topic    string
}

var _ domrepo.DecisionPublisher = (*KafkaDecisionPublisher)(nil)

func NewKafkaDecisionPublisher(producer EventProducer, topic string) *KafkaDecisionPublisher {
	return &KafkaDecisionPublisher{producer: producer, topic: topic}
}

func (p *KafkaDecisionPublisher) Publish(ctx context.Context, entry models.LedgerEntry) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(entry.Signal.Ticker), entry); err != nil {
		return fmt.Errorf("publish decision %s: %w", entry.ID, err)
	}
	return nil
}

func (p *KafkaDecisionPublisher) Close() error { return p.producer.Close() }

// KafkaAlertPublisher ships aggregated error logs to the alerts topic.
type KafkaAlertPublisher struct {
	producer EventProducer
}

var _ logger.AlertPublisher = (*KafkaAlertPublisher)(nil)

func NewKafkaAlertPublisher(producer EventProducer) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer}
}

func (p *KafkaAlertPublisher) PublishAlerts(ctx context.Context, topic string, alerts []logger.Alert) error {
	msgs := make([]pkgkafka.Message, 0, len(alerts))
	for _, a := range alerts {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(a.Caller), Value: a})
	}
	return p.producer.PublishBatch(ctx, topic, msgs)
}

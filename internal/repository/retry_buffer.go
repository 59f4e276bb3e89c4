package repository

import (
	"context"
	"fmt"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
	"SignalGate/pkg/queue"
)

// QueueRetryBuffer parks unaudited ledger entries on the job queue.
type QueueRetryBuffer struct {
	pub     queue.Publisher
	msgType string
}

var _ domrepo.RetryBuffer = (*QueueRetryBuffer)(nil)

func NewQueueRetryBuffer(pub queue.Publisher, msgType string) *QueueRetryBuffer {
	return &QueueRetryBuffer{pub: pub, msgType: msgType}
}

func (b *QueueRetryBuffer) Buffer(ctx context.Context, entry models.LedgerEntry) error {
	if err := b.pub.PublishMessage(ctx, b.msgType, entry); err != nil {
		return fmt.Errorf("buffer ledger entry: %w", err)
	}
	return nil
}

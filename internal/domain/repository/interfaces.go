package repository

import (
	"context"
	"errors"

	"SignalGate/internal/domain/models"
)

// ErrLedgerUnavailable marks ledger failures that leave a decision unaudited.
var ErrLedgerUnavailable = errors.New("ledger unavailable")

// ErrDuplicateEntry is returned when an append collides with an existing id.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

// Ledger is the append-only decision store. There is no update or delete.
type Ledger interface {
	// Append assigns ID and CreatedAt and persists the entry.
	Append(ctx context.Context, entry models.LedgerEntry) (models.LedgerEntry, error)
	// Query returns matching entries, most recent first, bounded by MaxLedgerLimit.
	Query(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
	// Count returns the number of matching entries, ignoring Limit.
	Count(ctx context.Context, filter models.LedgerFilter) (int64, error)
}

// DecisionPublisher fans finished decisions out to downstream consumers.
type DecisionPublisher interface {
	Publish(ctx context.Context, entry models.LedgerEntry) error
	Close() error
}

// RetryBuffer holds ledger entries whose append failed.
type RetryBuffer interface {
	Buffer(ctx context.Context, entry models.LedgerEntry) error
}

type Metrics interface {
	RecordDecision(decision models.Decision, symbol string)
	RecordGate(gate string, passed bool)
	RecordFallback(provider string)
	RecordLedgerAppend(backend string, err error)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// ErrEntryHasID is returned when Append receives an entry that already carries an id.
var ErrEntryHasID = errors.New("ledger entry already has an id")

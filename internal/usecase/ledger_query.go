package usecase

import (
	"context"
	"errors"
	"fmt"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
)

// ErrInvalidRange is returned when since is after until.
var ErrInvalidRange = errors.New("since must be <= until")

// LedgerQueryUseCase serves read access to the decision ledger.
type LedgerQueryUseCase struct {
	ledger domrepo.Ledger
}

func NewLedgerQueryUseCase(ledger domrepo.Ledger) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{ledger: ledger}
}

type LedgerPage struct {
	Entries []models.LedgerEntry
	Limit   int
	Total   int64
}

// List returns the newest matching entries and the total match count.
func (uc *LedgerQueryUseCase) List(ctx context.Context, f models.LedgerFilter) (*LedgerPage, error) {
	if f.Since > 0 && f.Until > 0 && f.Since > f.Until {
		return nil, ErrInvalidRange
	}
	f = f.Normalize()

	entries, err := uc.ledger.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	total, err := uc.ledger.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count ledger: %w", err)
	}
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return &LedgerPage{Entries: entries, Limit: f.Limit, Total: total}, nil
}

// Count returns the number of matching entries.
func (uc *LedgerQueryUseCase) Count(ctx context.Context, f models.LedgerFilter) (int64, error) {
	if f.Since > 0 && f.Until > 0 && f.Since > f.Until {
		return 0, ErrInvalidRange
	}
	n, err := uc.ledger.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return n, nil
}

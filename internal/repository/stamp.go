package repository

import (
	"sync/atomic"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"

	"github.com/google/uuid"
)

// Stamper assigns ledger ids and strictly increasing creation times in ms.
// It is safe for concurrent use.
type Stamper struct {
	last atomic.Int64
	now  func() time.Time
}

func NewStamper(now func() time.Time) *Stamper {
	if now == nil {
		now = time.Now
	}
	return &Stamper{now: now}
}

// Next returns max(now, last+1).
func (s *Stamper) Next() int64 {
	for {
		last := s.last.Load()
		next := s.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if s.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Stamp sets ID and CreatedAt on a fresh entry.
func (s *Stamper) Stamp(entry models.LedgerEntry) (models.LedgerEntry, error) {
	if entry.ID != "" {
		return models.LedgerEntry{}, domrepo.ErrEntryHasID
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = s.Next()
	return entry, nil
}

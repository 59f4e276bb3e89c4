package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"
)

// MemoryLedger keeps entries in process memory, for development and tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries []models.LedgerEntry
	stamp   *Stamper
}

var _ domrepo.Ledger = (*MemoryLedger)(nil)

func NewMemoryLedger(stamp *Stamper) *MemoryLedger {
	if stamp == nil {
		stamp = NewStamper(nil)
	}
	return &MemoryLedger{stamp: stamp}
}

func (m *MemoryLedger) Backend() string { return "memory" }

func (m *MemoryLedger) Append(_ context.Context, entry models.LedgerEntry) (models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Stamped under the lock so slice order matches created_at order.
	stored, err := m.stamp.Stamp(entry)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	own, err := cloneEntry(stored)
	if err != nil {
		return models.LedgerEntry{}, err
	}
	m.entries = append(m.entries, own)
	return stored, nil
}

// Query scans newest first. Entries are kept in created_at order because the
// stamper is monotonic and appends stamp while holding the lock.
func (m *MemoryLedger) Query(_ context.Context, f models.LedgerFilter) ([]models.LedgerEntry, error) {
	f = f.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.LedgerEntry, 0, f.Limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < f.Limit; i-- {
		if !f.Matches(m.entries[i]) {
			continue
		}
		e, err := cloneEntry(m.entries[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryLedger) Count(_ context.Context, f models.LedgerFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, e := range m.entries {
		if f.Matches(e) {
			n++
		}
	}
	return n, nil
}

// cloneEntry deep-copies through JSON so callers never share pointers with
// stored rows.
func cloneEntry(e models.LedgerEntry) (models.LedgerEntry, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("encode entry: %w", err)
	}
	var out models.LedgerEntry
	if err := json.Unmarshal(b, &out); err != nil {
		return models.LedgerEntry{}, fmt.Errorf("decode entry: %w", err)
	}
	return out, nil
}

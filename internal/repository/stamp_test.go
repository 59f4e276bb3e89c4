package repository

import (
	"sync"
	"testing"
	"time"

	"SignalGate/internal/domain/models"
	domrepo "SignalGate/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStamperIsMonotonicWithFrozenClock(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s := NewStamper(func() time.Time { return now })

	assert.Equal(t, int64(1_700_000_000_000), s.Next())
	assert.Equal(t, int64(1_700_000_000_001), s.Next())

	now = now.Add(-time.Hour)
	assert.Equal(t, int64(1_700_000_000_002), s.Next(), "clock going backwards must not reorder")
}

func TestStamperConcurrentUnique(t *testing.T) {
	s := NewStamper(nil)
	const workers, per = 16, 200

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*per)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, per)
			for i := 0; i < per; i++ {
				local = append(local, s.Next())
			}
			mu.Lock()
			for _, v := range local {
				seen[v] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*per)
}

func TestStampRejectsExistingID(t *testing.T) {
	s := NewStamper(nil)
	_, err := s.Stamp(models.LedgerEntry{ID: "given"})
	assert.ErrorIs(t, err, domrepo.ErrEntryHasID)

	e, err := s.Stamp(models.LedgerEntry{})
	require.NoError(t, err)
	assert.Len(t, e.ID, 36)
	assert.NotZero(t, e.CreatedAt)
}

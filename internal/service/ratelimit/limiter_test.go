package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBurstThenRefill(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("SPY"))
	assert.True(t, l.Allow("SPY"))
	assert.False(t, l.Allow("SPY"))
	assert.True(t, l.Allow("QQQ"), "keys are independent")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("SPY"))
	assert.False(t, l.Allow("SPY"))
}

func TestLimiterSweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(10, 5)
	l.now = func() time.Time { return now }

	l.Allow("SPY")
	l.Allow("QQQ")
	now = now.Add(5 * time.Minute)
	l.Allow("QQQ")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, l.Sweep(), "only SPY is idle past the window")
	assert.Len(t, l.m, 1)
}

func TestLimiterAllowSweepsIdleKeys(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := New(10, 5)
	l.now = func() time.Time { return now }

	l.Allow("SPY")
	now = now.Add(11 * time.Minute)
	l.Allow("QQQ")

	assert.Len(t, l.m, 1)
	_, ok := l.m["QQQ"]
	assert.True(t, ok)
}

package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWithJitterBounds(t *testing.T) {
	min, max := 50*time.Millisecond, 400*time.Millisecond
	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestPartitionLockIsStable(t *testing.T) {
	c, err := NewConsumer(WithConsumerBrokers([]string{"localhost:9092"}))
	assert.NoError(t, err)

	a := c.partitionLock("signals", 1)
	b := c.partitionLock("signals", 1)
	other := c.partitionLock("signals", 2)
	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

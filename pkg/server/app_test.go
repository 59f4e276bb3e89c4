package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTampered = errors.New("tampered")

func blockUntilDone(stopped *bool, mu *sync.Mutex) RunnerFunc {
	return func(ctx context.Context) error {
		<-ctx.Done()
		mu.Lock()
		*stopped = true
		mu.Unlock()
		return nil
	}
}

func TestRunStopsAllOnComponentError(t *testing.T) {
	var mu sync.Mutex
	var stopped bool
	var order []string

	app := New(
		WithComponent("http", blockUntilDone(&stopped, &mu)),
		WithComponent("guard", RunnerFunc(func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return errTampered
		})),
		WithComponent("optional", nil),
		WithCloser("ledger", func() error { order = append(order, "ledger"); return nil }),
		WithCloser("producer", func() error { order = append(order, "producer"); return nil }),
	)
	assert.Equal(t, []string{"http", "guard"}, app.Components())

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errTampered)
	assert.Contains(t, err.Error(), "guard")

	mu.Lock()
	assert.True(t, stopped)
	mu.Unlock()
	assert.Equal(t, []string{"producer", "ledger"}, order)
}

func TestRunReturnsNilOnCancel(t *testing.T) {
	var mu sync.Mutex
	var stopped bool
	ctx, cancel := context.WithCancel(context.Background())

	app := New(WithComponent("http", blockUntilDone(&stopped, &mu)))
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("app did not stop")
	}
}

func TestRunJoinsCloserErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	app := New(WithCloser("postgres", func() error { return errors.New("boom") }))
	err := app.Run(ctx)
	assert.ErrorContains(t, err, "close postgres: boom")
}

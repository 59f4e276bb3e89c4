package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalGate/pkg/logger"
)

// ErrConfigTampered is raised when the registry no longer matches its frozen checksum.
var ErrConfigTampered = errors.New("decision configuration tampered")

// GuardOption configures Guard.
type GuardOption func(*Guard)

// Guard periodically re-verifies the registry checksum.
type Guard struct {
	reg       *Registry
	baseline  string
	interval  time.Duration
	terminate bool
	onTamper  func(error)
	l         *logger.Logger

	mu       sync.Mutex
	checks   int64
	tampered bool
}

// WithInterval sets the verification period.
func WithInterval(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithTerminate makes Run return ErrConfigTampered after the first mismatch.
func WithTerminate(terminate bool) GuardOption {
	return func(g *Guard) {
		g.terminate = terminate
	}
}

// WithOnTamper registers a callback invoked once per detected mismatch.
func WithOnTamper(fn func(error)) GuardOption {
	return func(g *Guard) {
		g.onTamper = fn
	}
}

// WithGuardLogger injects a structured logger.
func WithGuardLogger(l *logger.Logger) GuardOption {
	return func(g *Guard) {
		g.l = l
	}
}

// NewGuard captures the registry's frozen checksum as the baseline.
func NewGuard(reg *Registry, opts ...GuardOption) *Guard {
	g := &Guard{
		reg:      reg,
		baseline: reg.FrozenChecksum(),
		interval: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verify recomputes the checksum and compares it with the baseline.
func (g *Guard) Verify() error {
	current := g.reg.Checksum()

	g.mu.Lock()
	g.checks++
	g.mu.Unlock()

	if current == g.baseline {
		return nil
	}
	err := fmt.Errorf("%w: checksum %s, expected %s", ErrConfigTampered, current, g.baseline)

	g.mu.Lock()
	g.tampered = true
	g.mu.Unlock()

	if g.l != nil {
		g.l.Error("configuration integrity check failed",
			logger.String("engine_version", g.reg.EngineVersion()),
			logger.String("expected", g.baseline),
			logger.String("actual", current),
			logger.Error(err),
		)
	}
	if g.onTamper != nil {
		g.onTamper(err)
	}
	return err
}

// Run blocks, verifying on every tick until ctx is done. With terminate set
// it returns the tamper error instead of continuing to alert.
func (g *Guard) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	if g.l != nil {
		g.l.Info("configuration guard started",
			logger.Duration("interval_ms", g.interval),
			logger.String("checksum", g.baseline),
			logger.Bool("terminate", g.terminate),
		)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := g.Verify(); err != nil && g.terminate {
				return err
			}
		}
	}
}

// Stats returns the number of checks run and whether tampering was ever seen.
func (g *Guard) Stats() (checks int64, tampered bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checks, g.tampered
}

// Baseline returns the checksum the guard compares against.
func (g *Guard) Baseline() string { return g.baseline }

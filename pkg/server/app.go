// Package server runs the long-lived components of the engine under one
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"

	"SignalGate/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Runner is a component that works until ctx is cancelled. A non-nil error
// stops every other component.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

type component struct {
	name string
	r    Runner
}

type closer struct {
	name string
	fn   func() error
}

// AppOption configures App.
type AppOption func(*App)

// WithComponent adds a runner. Nil runners are skipped so optional
// infrastructure can be passed unconditionally.
func WithComponent(name string, r Runner) AppOption {
	return func(a *App) {
		if r != nil {
			a.components = append(a.components, component{name: name, r: r})
		}
	}
}

// WithCloser registers a cleanup step run after every component returned.
// Closers run in reverse registration order.
func WithCloser(name string, fn func() error) AppOption {
	return func(a *App) {
		if fn != nil {
			a.closers = append(a.closers, closer{name: name, fn: fn})
		}
	}
}

// WithAppLogger sets the logger.
func WithAppLogger(l *logger.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.l = l
		}
	}
}

// App encapsulates the application lifecycle.
type App struct {
	components []component
	closers    []closer
	l          *logger.Logger
}

func New(opts ...AppOption) *App {
	a := &App{l: logger.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Components returns the names of the registered runners.
func (a *App) Components() []string {
	out := make([]string, 0, len(a.components))
	for _, c := range a.components {
		out = append(out, c.name)
	}
	return out
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails, then releases resources.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range a.components {
		c := c
		g.Go(func() error {
			a.l.Info("component started", logger.String("component", c.name))
			if err := c.r.Run(gctx); err != nil {
				a.l.Error("component failed", logger.String("component", c.name), logger.Error(err))
				return fmt.Errorf("%s: %w", c.name, err)
			}
			a.l.Info("component stopped", logger.String("component", c.name))
			return nil
		})
	}

	err := g.Wait()
	if cerr := a.close(); cerr != nil {
		a.l.Warn("shutdown cleanup failed", logger.Error(cerr))
		err = errors.Join(err, cerr)
	}
	a.l.Info("shutdown complete")
	return err
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

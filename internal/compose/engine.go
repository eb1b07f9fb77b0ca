// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/invowk/palette/pkg/palette"
)

type (
	// Source yields the fragments of one composition cycle, in collector order.
	Source interface {
		Fragments(ctx context.Context) ([]palette.Fragment, error)
	}

	// SourceFunc adapts a function to Source.
	SourceFunc func(ctx context.Context) ([]palette.Fragment, error)

	// Engine owns the published registry.
	Engine struct {
		source   Source
		pipeline Pipeline
		logger   *log.Logger
		metrics  *Metrics
		now      func() time.Time

		// mu serializes cycles; readers never take it.
		mu      sync.Mutex
		current atomic.Pointer[palette.Registry]
	}

	// Option configures an Engine.
	Option func(*Engine)
)

// Fragments calls f.
func (f SourceFunc) Fragments(ctx context.Context) ([]palette.Fragment, error) { return f(ctx) }

// WithLogger sets the engine logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records cycles in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPipeline replaces the default pipeline.
func WithPipeline(p Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// WithClock sets the time source used for ComposedAt and durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine publishing the empty registry until the first
// successful Recompose.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		pipeline: DefaultPipeline(),
		logger:   log.Default().WithPrefix("compose"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(palette.EmptyRegistry())
	return e
}

// Registry returns the published registry. It never blocks on a running cycle
// and never observes a partially built one.
func (e *Engine) Registry() *palette.Registry {
	return e.current.Load()
}

// Recompose runs one composition cycle. On success the new registry is published
// and returned. A *discovery.ContributionError from the source or a
// *StructuralError from validation publishes the empty registry and is returned.
// If ctx is canceled while collecting, the published registry is left unchanged.
func (e *Engine) Recompose(ctx context.Context) (*palette.Registry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cycleID := uuid.NewString()
	start := e.now()
	logger := e.logger.With("cycle", cycleID)

	fragments, err := e.source.Fragments(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			e.metrics.observe(ResultCanceled, e.now().Sub(start), nil)
			logger.Warn("composition canceled, keeping published registry", "err", err)
			return nil, fmt.Errorf("collect contributions: %w", err)
		}
		return nil, e.reset(logger, ResultContribution, start, fmt.Errorf("collect contributions: %w", err))
	}

	composition := e.pipeline.Compose(fragments)

	reg, err := Validate(composition)
	if err != nil {
		return nil, e.reset(logger, ResultStructural, start, err)
	}

	reg.CycleID = cycleID
	reg.ComposedAt = e.now()
	e.current.Store(reg)

	elapsed := reg.ComposedAt.Sub(start)
	e.metrics.observe(ResultPublished, elapsed, reg)
	logger.Info("registry published",
		"fragments", len(fragments),
		"commands", reg.Commands.Len(),
		"groups", reg.Groups.Len(),
		"removals", len(reg.Removals),
		"took", elapsed,
	)
	return reg, nil
}

func (e *Engine) reset(logger *log.Logger, result string, start time.Time, err error) error {
	empty := palette.EmptyRegistry()
	e.current.Store(empty)
	e.metrics.observe(result, e.now().Sub(start), empty)
	logger.Error("composition failed, published registry reset to empty", "err", err)
	return err
}

// Package search runs the parallel truncated-digest collision search.
//
// Workers scan disjoint position ranges and stream fingerprints over one
// bounded channel to a single coordinator that owns the collision index.
package search

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
)

// Search is a configured collision search. Run may be called once.
type Search struct {
	params  Params
	trunc   *fingerprint.Truncator
	counter *atomic.Uint64
	obs     Observer
	metrics *Metrics
	log     *zap.Logger
}

// Option customises a Search.
type Option func(*Search)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Search) { s.log = l }
}

// WithObserver sets the receiver of progress and events.
func WithObserver(o Observer) Option {
	return func(s *Search) { s.obs = o }
}

// WithMetrics sets the Prometheus collectors to update.
func WithMetrics(m *Metrics) Option {
	return func(s *Search) { s.metrics = m }
}

// New validates p and returns a Search.
func New(p Params, opts ...Option) (*Search, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	trunc, err := fingerprint.New(p.CompareBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	s := &Search{
		params:  p,
		trunc:   trunc,
		counter: atomic.NewUint64(0),
		obs:     nopObserver{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Count returns how many positions have been scanned so far.
func (s *Search) Count() uint64 { return s.counter.Load() }

// Truncator returns the fingerprint projection in use.
func (s *Search) Truncator() *fingerprint.Truncator { return s.trunc }

// Run scans until a verified collision is found. It returns ErrExhausted when
// the whole space was scanned without one.
func (s *Search) Run(ctx context.Context) (*Event, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := newBatchPool(s.params.BatchSize)
	ranges := Partition(s.params.Positions, s.params.Workers)
	workers := make([]*worker, 0, len(ranges))
	for i, r := range ranges {
		gen, err := s.newGenerator()
		if err != nil {
			return nil, err
		}
		workers = append(workers, &worker{
			id:        i,
			rng:       r,
			gen:       gen,
			trunc:     s.trunc,
			batchSize: s.params.BatchSize,
			stride:    s.params.ProgressStride,
			counter:   s.counter,
			pool:      pool,
			log:       s.log,
		})
	}
	prev, err := s.newGenerator()
	if err != nil {
		return nil, err
	}
	curr, err := s.newGenerator()
	if err != nil {
		return nil, err
	}
	c := &coordinator{
		index:   NewIndex(indexHint(s.params.CompareBits)),
		trunc:   s.trunc,
		filter:  s.params.Filter,
		prev:    prev,
		curr:    curr,
		counter: s.counter,
		pool:    pool,
		obs:     s.obs,
		metrics: s.metrics,
		log:     s.log,
	}

	s.log.Info("search started",
		zap.Int("workers", len(workers)),
		zap.Uint("compare_bits", s.params.CompareBits),
		zap.Uint64("positions", s.params.Positions),
		zap.Stringer("seed", s.params.Seed),
		zap.Stringer("filter", s.params.Filter))

	out := make(chan Message, s.params.ChannelCapacity)
	var g errgroup.Group
	for _, w := range workers {
		g.Go(func() error { return w.run(ctx, out) })
	}
	go func() {
		_ = g.Wait()
		close(out)
	}()

	ev, err := c.run(ctx, out)
	cancel()
	if werr := g.Wait(); werr != nil && err == nil {
		err = werr
	}
	s.log.Info("search finished", zap.Uint64("count", s.counter.Load()), zap.Int("index_entries", c.index.Len()), zap.Error(err))
	return ev, err
}

func (s *Search) newGenerator() (*generator.Generator, error) {
	gen, err := generator.New(s.params.Seed, s.params.generatorOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return gen, nil
}

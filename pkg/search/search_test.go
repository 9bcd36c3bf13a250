package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
)

var fixedSeed = generator.Seed{Hi: 0x5eed, Lo: 0xc0ffee}

func smallParams(workers int) Params {
	p := DefaultParams()
	p.CompareBits = 16
	p.Workers = workers
	p.Positions = 200_000
	p.ProgressStride = 10_000
	p.BatchSize = 256
	p.Seed = fixedSeed
	return p
}

func checkCollision(t *testing.T, p Params, ev *Event) {
	t.Helper()
	require.NotNil(t, ev)
	require.Equal(t, Verified, ev.Kind)
	require.NotEqual(t, ev.Prev.Sample, ev.Curr.Sample)
	require.NotEqual(t, ev.Prev.Position, ev.Curr.Position)

	trunc, err := fingerprint.New(p.CompareBits)
	require.NoError(t, err)
	require.Equal(t, ev.Fingerprint, trunc.Eval(ev.Prev.Sample))
	require.Equal(t, ev.Fingerprint, trunc.Eval(ev.Curr.Sample))
	require.True(t, p.Filter.Match(fingerprint.Sum(ev.Prev.Sample), fingerprint.Sum(ev.Curr.Sample)))

	gen, err := generator.New(p.Seed, p.generatorOptions()...)
	require.NoError(t, err)
	require.Equal(t, gen.At(ev.Prev.Position), ev.Prev.Sample)
	require.Equal(t, gen.At(ev.Curr.Position), ev.Curr.Sample)
}

func TestSearchFindsReproducibleCollision(t *testing.T) {
	p := smallParams(1)

	run := func() *Event {
		s, err := New(p, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		ev, err := s.Run(context.Background())
		require.NoError(t, err)
		checkCollision(t, p, ev)
		return ev
	}

	first, second := run(), run()
	require.Equal(t, first.Prev.Position, second.Prev.Position)
	require.Equal(t, first.Curr.Position, second.Curr.Position)
	require.Equal(t, first.Prev.Sample, second.Prev.Sample)
	require.Equal(t, first.Curr.Sample, second.Curr.Sample)
	require.Equal(t, first.Hex, second.Hex)
	require.Len(t, first.Hex, 4)
}

func TestSearchParallelWorkers(t *testing.T) {
	p := smallParams(4)
	reg := prometheus.NewRegistry()
	rec := &recorder{}

	s, err := New(p, WithMetrics(NewMetrics(reg)), WithObserver(rec))
	require.NoError(t, err)
	ev, err := s.Run(context.Background())
	require.NoError(t, err)
	checkCollision(t, p, ev)

	require.Equal(t, Verified, rec.events[len(rec.events)-1].Kind)
	m := s.metrics
	require.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("verified")))
	require.Greater(t, testutil.ToFloat64(m.positions), 0.0)
	require.Greater(t, testutil.ToFloat64(m.indexEntries), 0.0)
	require.LessOrEqual(t, testutil.ToFloat64(m.indexEntries), float64(1<<16))
}

func TestSearchExhausted(t *testing.T) {
	p := DefaultParams()
	p.CompareBits = 64
	p.Workers = 3
	p.Positions = 500
	p.BatchSize = 16
	p.ProgressStride = 100
	p.Seed = fixedSeed
	rec := &recorder{}

	s, err := New(p, WithObserver(rec))
	require.NoError(t, err)
	ev, err := s.Run(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
	require.Nil(t, ev)
	require.Equal(t, uint64(500), s.Count())
	require.Len(t, rec.progress, 5)
}

func TestSearchCancel(t *testing.T) {
	p := DefaultParams()
	p.CompareBits = 64
	p.Workers = 2
	p.Seed = fixedSeed

	s, err := New(p)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = s.Run(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
	require.Greater(t, s.Count(), uint64(0))
}

func TestNewRejectsInvalidParams(t *testing.T) {
	for name, mutate := range map[string]func(*Params){
		"bits":    func(p *Params) { p.CompareBits = 0 },
		"wide":    func(p *Params) { p.CompareBits = 65 },
		"workers": func(p *Params) { p.Workers = 0 },
		"batch":   func(p *Params) { p.BatchSize = 0 },
		"stride":  func(p *Params) { p.ProgressStride = 0 },
		"epoch":   func(p *Params) { p.EpochSize = 0 },
		"length":  func(p *Params) { p.SampleLen = 0 },
		"filter":  func(p *Params) { p.Filter.Byte = 40 },
	} {
		p := DefaultParams()
		mutate(&p)
		if _, err := New(p); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("%s: err = %v, want ErrInvalidParams", name, err)
		}
	}
}

package search

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
)

// coordinator owns the index. prev and curr re-derive the two samples of a
// hit independently of the workers.
type coordinator struct {
	index   *Index
	trunc   *fingerprint.Truncator
	filter  fingerprint.Filter
	prev    generator.Source
	curr    generator.Source
	counter *atomic.Uint64
	pool    *batchPool
	obs     Observer
	metrics *Metrics
	log     *zap.Logger
}

// run merges messages until a verified collision, ctx cancellation or the
// channel closing.
func (c *coordinator) run(ctx context.Context, in <-chan Message) (*Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case m, ok := <-in:
			if !ok {
				return nil, ErrExhausted
			}
			if m.Batch == nil {
				c.obs.Progress(m.Progress)
				continue
			}
			ev, err := c.mergeBatch(m.Batch)
			if ev != nil || err != nil {
				return ev, err
			}
		}
	}
}

func (c *coordinator) mergeBatch(batch []Entry) (*Event, error) {
	timer := c.metrics.timer()
	defer timer.ObserveDuration()
	defer c.pool.put(batch)

	for i, e := range batch {
		ev, err := c.merge(e)
		if err != nil {
			return nil, err
		}
		if ev != nil {
			c.metrics.batch(i+1, c.index.Len())
			return ev, nil
		}
	}
	c.metrics.batch(len(batch), c.index.Len())
	return nil, nil
}

// merge inserts e and adjudicates a hit. It returns an event only for a
// verified collision.
func (c *coordinator) merge(e Entry) (*Event, error) {
	prev, found := c.index.Insert(e.Fingerprint, e.Position)
	if !found || prev == e.Position {
		return nil, nil
	}

	a, err := c.observe(c.prev, prev, e.Fingerprint)
	if err != nil {
		return nil, err
	}
	b, err := c.observe(c.curr, e.Position, e.Fingerprint)
	if err != nil {
		return nil, err
	}

	ev := Event{
		Fingerprint: e.Fingerprint,
		Hex:         c.trunc.Hex(e.Fingerprint),
		Prev:        a,
		Curr:        b,
		Count:       c.counter.Load(),
	}
	switch {
	case bytes.Equal(a.Sample, b.Sample):
		ev.Kind = Duplicate
	case c.filter.Match(a.Digest, b.Digest):
		ev.Kind = Verified
	default:
		ev.Kind = Inconclusive
	}

	c.metrics.event(ev.Kind)
	c.obs.Event(ev)
	if ev.Kind != Verified {
		c.log.Debug("fingerprint hit", zap.Stringer("kind", ev.Kind), zap.String("fingerprint", ev.Hex),
			zap.Uint64("prev", prev), zap.Uint64("curr", e.Position))
		return nil, nil
	}
	c.log.Info("verified collision", zap.String("fingerprint", ev.Hex),
		zap.ByteString("prev", a.Sample), zap.ByteString("curr", b.Sample),
		zap.Uint64("prev_position", prev), zap.Uint64("curr_position", e.Position))
	return &ev, nil
}

// observe re-derives the sample at pos and checks it still hashes to fp.
func (c *coordinator) observe(src generator.Source, pos uint64, fp fingerprint.Fingerprint) (Observation, error) {
	src.Seek(pos)
	sample := append([]byte(nil), src.Sample()...)
	if !generator.Valid(sample) {
		return Observation{}, fmt.Errorf("%w: position %d: %q outside alphabet", ErrCorruptSample, pos, sample)
	}
	d := fingerprint.Sum(sample)
	if got := c.trunc.Truncate(d); got != fp {
		return Observation{}, fmt.Errorf("%w: position %d: fingerprint %s, reported %s",
			ErrCorruptSample, pos, c.trunc.Hex(got), c.trunc.Hex(fp))
	}
	return Observation{Position: pos, Sample: sample, Digest: d}, nil
}

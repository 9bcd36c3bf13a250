package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
)

// fakeSource serves fixed samples by position.
type fakeSource struct {
	samples map[uint64][]byte
	pos     uint64
}

func (f *fakeSource) Seek(pos uint64)  { f.pos = pos }
func (f *fakeSource) Advance()         { f.pos++ }
func (f *fakeSource) Position() uint64 { return f.pos }
func (f *fakeSource) Sample() []byte   { return f.samples[f.pos] }

type recorder struct {
	progress []uint64
	events   []Event
}

func (r *recorder) Progress(n uint64) { r.progress = append(r.progress, n) }
func (r *recorder) Event(e Event)     { r.events = append(r.events, e) }

func newTestCoordinator(t *testing.T, trunc *fingerprint.Truncator, samples map[uint64][]byte, obs Observer) *coordinator {
	t.Helper()
	return &coordinator{
		index:   NewIndex(0),
		trunc:   trunc,
		filter:  fingerprint.DefaultFilter,
		prev:    &fakeSource{samples: samples},
		curr:    &fakeSource{samples: samples},
		counter: atomic.NewUint64(0),
		pool:    newBatchPool(4),
		obs:     obs,
		log:     zaptest.NewLogger(t),
	}
}

// findPair brute-forces two distinct digit strings sharing a fingerprint whose
// full digests do (or do not) pass the default filter.
func findPair(t *testing.T, trunc *fingerprint.Truncator, wantMatch bool) ([]byte, []byte) {
	t.Helper()
	seen := make(map[fingerprint.Fingerprint][]byte)
	for i := 0; i < 1_000_000; i++ {
		s := []byte(fmt.Sprintf("%08d", i))
		fp := trunc.Eval(s)
		if prev, ok := seen[fp]; ok {
			if fingerprint.DefaultFilter.Match(fingerprint.Sum(prev), fingerprint.Sum(s)) == wantMatch {
				return prev, s
			}
			continue
		}
		seen[fp] = s
	}
	t.Fatal("no pair found")
	return nil, nil
}

func feed(msgs ...Message) <-chan Message {
	ch := make(chan Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return ch
}

func TestCoordinatorVerified(t *testing.T) {
	trunc, _ := fingerprint.New(8)
	a, b := findPair(t, trunc, true)
	rec := &recorder{}
	c := newTestCoordinator(t, trunc, map[uint64][]byte{10: a, 20: b}, rec)

	fp := trunc.Eval(a)
	ev, err := c.run(context.Background(), feed(
		Message{Progress: 5},
		Message{Batch: []Entry{{fp, 10}, {fp, 20}}},
	))
	require.NoError(t, err)
	require.NotNil(t, ev)
	require.Equal(t, Verified, ev.Kind)
	require.Equal(t, uint64(10), ev.Prev.Position)
	require.Equal(t, uint64(20), ev.Curr.Position)
	require.Equal(t, a, ev.Prev.Sample)
	require.Equal(t, b, ev.Curr.Sample)
	require.Equal(t, trunc.Hex(fp), ev.Hex)
	require.Equal(t, []uint64{5}, rec.progress)
	require.Len(t, rec.events, 1)
}

func TestCoordinatorInconclusiveContinues(t *testing.T) {
	trunc, _ := fingerprint.New(8)
	a, b := findPair(t, trunc, false)
	rec := &recorder{}
	c := newTestCoordinator(t, trunc, map[uint64][]byte{1: a, 2: b}, rec)

	fp := trunc.Eval(a)
	ev, err := c.run(context.Background(), feed(Message{Batch: []Entry{{fp, 1}, {fp, 2}}}))
	require.ErrorIs(t, err, ErrExhausted)
	require.Nil(t, ev)
	require.Len(t, rec.events, 1)
	require.Equal(t, Inconclusive, rec.events[0].Kind)

	pos, ok := c.index.Lookup(fp)
	require.True(t, ok)
	require.Equal(t, uint64(2), pos)
}

func TestCoordinatorIdenticalSamplesAreDuplicates(t *testing.T) {
	trunc, _ := fingerprint.New(16)
	s := []byte("AAAAAAAA")
	rec := &recorder{}
	c := newTestCoordinator(t, trunc, map[uint64][]byte{3: s, 7: s, 9: s}, rec)

	fp := trunc.Eval(s)
	ev, err := c.run(context.Background(), feed(Message{Batch: []Entry{{fp, 3}, {fp, 7}, {fp, 9}}}))
	require.ErrorIs(t, err, ErrExhausted)
	require.Nil(t, ev)
	require.Len(t, rec.events, 2)
	for _, e := range rec.events {
		require.Equal(t, Duplicate, e.Kind)
	}
	pos, _ := c.index.Lookup(fp)
	require.Equal(t, uint64(9), pos)
}

func TestCoordinatorSamePositionTwice(t *testing.T) {
	trunc, _ := fingerprint.New(16)
	rec := &recorder{}
	c := newTestCoordinator(t, trunc, nil, rec)

	_, err := c.run(context.Background(), feed(Message{Batch: []Entry{{1, 4}, {1, 4}}}))
	require.ErrorIs(t, err, ErrExhausted)
	require.Empty(t, rec.events)
}

func TestCoordinatorCorruptSample(t *testing.T) {
	trunc, _ := fingerprint.New(16)
	bad := []byte("AAAA!AAA")
	c := newTestCoordinator(t, trunc, map[uint64][]byte{1: bad, 2: []byte("BBBBBBBB")}, &recorder{})

	fp := trunc.Eval(bad)
	_, err := c.run(context.Background(), feed(Message{Batch: []Entry{{fp, 1}, {fp, 2}}}))
	require.ErrorIs(t, err, ErrCorruptSample)
}

func TestCoordinatorFingerprintMismatchIsCorrupt(t *testing.T) {
	trunc, _ := fingerprint.New(16)
	a := []byte("AAAAAAAA")
	c := newTestCoordinator(t, trunc, map[uint64][]byte{1: a, 2: a}, &recorder{})

	wrong := trunc.Eval(a) ^ 1
	_, err := c.run(context.Background(), feed(Message{Batch: []Entry{{wrong, 1}, {wrong, 2}}}))
	require.True(t, errors.Is(err, ErrCorruptSample), "err = %v", err)
}

func TestCoordinatorStopsOnCancel(t *testing.T) {
	trunc, _ := fingerprint.New(16)
	c := newTestCoordinator(t, trunc, nil, &recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.run(ctx, make(chan Message))
	require.ErrorIs(t, err, context.Canceled)
}

package search

import (
	"context"
	"errors"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
)

// worker scans one range with its own generator.
type worker struct {
	id        int
	rng       Range
	gen       generator.Source
	trunc     *fingerprint.Truncator
	batchSize int
	stride    uint64
	counter   *atomic.Uint64
	pool      *batchPool
	log       *zap.Logger
}

// run scans the whole range unless the coordinator stops reading first.
func (w *worker) run(ctx context.Context, out chan<- Message) error {
	err := w.scan(ctx, out)
	if errors.Is(err, ErrClosed) {
		w.log.Debug("worker stopped early", zap.Int("worker", w.id), zap.Uint64("position", w.gen.Position()))
		return nil
	}
	if err == nil {
		w.log.Debug("worker finished range", zap.Int("worker", w.id), zap.Uint64("start", w.rng.Start), zap.Uint64("end", w.rng.End))
	}
	return err
}

func (w *worker) scan(ctx context.Context, out chan<- Message) error {
	if w.rng.Len() == 0 {
		return nil
	}

	w.gen.Seek(w.rng.Start)
	batch := w.pool.get()
	for pos := w.rng.Start; pos < w.rng.End; pos++ {
		if pos != w.rng.Start {
			w.gen.Advance()
		}
		batch = append(batch, Entry{Fingerprint: w.trunc.Eval(w.gen.Sample()), Position: pos})

		if n := w.counter.Inc(); n%w.stride == 0 {
			if err := send(ctx, out, Message{Progress: n}); err != nil {
				return err
			}
		}
		if len(batch) == w.batchSize {
			if err := send(ctx, out, Message{Batch: batch}); err != nil {
				return err
			}
			batch = w.pool.get()
		}
	}
	if len(batch) > 0 {
		return send(ctx, out, Message{Batch: batch})
	}
	return nil
}

// pkg/storage/batcher.go
package storage

import (
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	batchLimit    = 100
	flushInterval = 250 * time.Millisecond
)

type kv struct{ k, v []byte }

// Batcher groups Puts into one bbolt transaction per batchLimit records or
// per flushInterval, whichever comes first.
type Batcher struct {
	db     *bolt.DB
	bucket []byte
	ch     chan kv
	done   chan struct{}
	wg     sync.WaitGroup
	log    *zap.Logger
}

// NewBatcher starts the flush loop. The bucket must exist.
func NewBatcher(db *bolt.DB, bucket string, log *zap.Logger) *Batcher {
	b := &Batcher{
		db:     db,
		bucket: []byte(bucket),
		ch:     make(chan kv, 1024),
		done:   make(chan struct{}),
		log:    log,
	}
	b.wg.Add(1)
	go b.loop()
	return b
}

// Put queues one record. It must not be called after Close.
func (b *Batcher) Put(k, v []byte) { b.ch <- kv{k, v} }

// Close flushes everything queued and stops the loop.
func (b *Batcher) Close() {
	close(b.done)
	b.wg.Wait()
}

func (b *Batcher) loop() {
	defer b.wg.Done()

	buf := make([]kv, 0, batchLimit)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		err := b.db.Update(func(tx *bolt.Tx) error {
			bk := tx.Bucket(b.bucket)
			for _, p := range buf {
				if err := bk.Put(p.k, p.v); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			b.log.Error("journal flush failed", zap.Int("records", len(buf)), zap.Error(err))
		}
		buf = buf[:0]
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case p := <-b.ch:
			buf = append(buf, p)
			if len(buf) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-b.done:
			for {
				select {
				case p := <-b.ch:
					buf = append(buf, p)
				default:
					flush()
					return
				}
			}
		}
	}
}

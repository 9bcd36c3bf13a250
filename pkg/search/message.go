package search

import (
	"context"
	"sync"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
)

// Entry is one scanned position.
type Entry struct {
	Fingerprint fingerprint.Fingerprint
	Position    uint64
}

// Message travels from workers to the coordinator. A message with a nil
// Batch is a progress marker carrying the global occurrence count.
type Message struct {
	Batch    []Entry
	Progress uint64
}

// send delivers m unless ctx is done first.
func send(ctx context.Context, out chan<- Message, m Message) error {
	select {
	case out <- m:
		return nil
	case <-ctx.Done():
		return ErrClosed
	}
}

// batchPool recycles batch slices between workers and the coordinator.
type batchPool struct {
	pool sync.Pool
	size int
}

func newBatchPool(size int) *batchPool {
	return &batchPool{size: size}
}

func (p *batchPool) get() []Entry {
	if v := p.pool.Get(); v != nil {
		return (*v.(*[]Entry))[:0]
	}
	return make([]Entry, 0, p.size)
}

func (p *batchPool) put(b []Entry) {
	if cap(b) < p.size {
		return
	}
	b = b[:0]
	p.pool.Put(&b)
}

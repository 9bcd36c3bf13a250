package search

import "github.com/dattu/truncated_collider/pkg/fingerprint"

// Index maps every fingerprint seen so far to the newest position that
// produced it. It is owned by a single goroutine.
type Index struct {
	m map[fingerprint.Fingerprint]uint64
}

// NewIndex returns an empty Index sized for hint entries.
func NewIndex(hint int) *Index {
	return &Index{m: make(map[fingerprint.Fingerprint]uint64, hint)}
}

// Insert records pos under fp and returns the position it replaced, if any.
func (x *Index) Insert(fp fingerprint.Fingerprint, pos uint64) (prev uint64, found bool) {
	prev, found = x.m[fp]
	x.m[fp] = pos
	return prev, found
}

// Lookup returns the position stored under fp.
func (x *Index) Lookup(fp fingerprint.Fingerprint) (uint64, bool) {
	pos, ok := x.m[fp]
	return pos, ok
}

// Len returns the number of distinct fingerprints.
func (x *Index) Len() int { return len(x.m) }

// indexHint caps the initial allocation at 2^20 entries.
func indexHint(bits uint) int {
	if bits > 20 {
		bits = 20
	}
	return 1 << bits
}

package search

// Range is the half-open position interval [Start, End).
type Range struct {
	Start, End uint64
}

// Len returns the number of positions in r.
func (r Range) Len() uint64 { return r.End - r.Start }

// Partition splits [0, total) into n contiguous ranges. Sizes differ by at
// most one; the earlier ranges take the remainder.
func Partition(total uint64, n int) []Range {
	if n <= 0 {
		return nil
	}
	size, rem := total/uint64(n), total%uint64(n)
	out := make([]Range, n)
	var start uint64
	for i := range out {
		l := size
		if uint64(i) < rem {
			l++
		}
		out[i] = Range{Start: start, End: start + l}
		start += l
	}
	return out
}

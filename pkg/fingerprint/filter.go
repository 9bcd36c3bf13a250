package fingerprint

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is returned when a Filter addresses a byte outside the digest.
var ErrInvalidFilter = errors.New("filter byte out of digest range")

// Filter is the secondary check applied to the full digests of two samples
// whose fingerprints already match. It compares one masked byte.
type Filter struct {
	Byte int
	Mask byte
}

// DefaultFilter compares the low two bits of digest byte 25.
var DefaultFilter = Filter{Byte: 25, Mask: 0x03}

// Validate checks that the filter fits a Digest.
func (f Filter) Validate() error {
	if f.Byte < 0 || f.Byte >= len(Digest{}) {
		return fmt.Errorf("%w: byte %d", ErrInvalidFilter, f.Byte)
	}
	return nil
}

// Match reports whether a and b agree on the filtered bits.
func (f Filter) Match(a, b Digest) bool {
	return a[f.Byte]&f.Mask == b[f.Byte]&f.Mask
}

func (f Filter) String() string {
	return fmt.Sprintf("digest[%d]&%#02x", f.Byte, f.Mask)
}

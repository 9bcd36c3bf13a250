// pkg/fingerprint/fingerprint.go
package fingerprint

import (
	"errors"
	"fmt"

	sha256 "github.com/minio/sha256-simd"
)

// MaxBits is the widest fingerprint a Truncator can produce.
const MaxBits = 64

// ErrInvalidBits is returned when the compare width is outside 1..MaxBits.
var ErrInvalidBits = errors.New("compare bits must be between 1 and 64")

// Digest is a full SHA-256 output.
type Digest [sha256.Size]byte

// Fingerprint is a truncated digest packed big-endian into the low bytes of a uint64.
type Fingerprint uint64

// Sum hashes data in one shot. No state is carried between calls.
func Sum(data []byte) Digest {
	return sha256.Sum256(data)
}

// Truncator projects digests onto their trailing bits.
type Truncator struct {
	bits  uint
	width int
	mask  byte
}

// New returns a Truncator keeping the last bits of every digest.
func New(bits uint) (*Truncator, error) {
	if bits == 0 || bits > MaxBits {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBits, bits)
	}
	mask := byte(0xff)
	if rem := bits % 8; rem != 0 {
		mask = byte(1)<<rem - 1
	}
	return &Truncator{bits: bits, width: int((bits + 7) / 8), mask: mask}, nil
}

// Bits returns the compare width in bits.
func (t *Truncator) Bits() uint { return t.bits }

// Width returns the compare width in bytes.
func (t *Truncator) Width() int { return t.width }

// Truncate keeps the tail Width() bytes of d. The first kept byte is masked so
// that bits above Bits() are always zero.
func (t *Truncator) Truncate(d Digest) Fingerprint {
	var v uint64
	for i, b := range d[len(d)-t.width:] {
		if i == 0 {
			b &= t.mask
		}
		v = v<<8 | uint64(b)
	}
	return Fingerprint(v)
}

// Eval computes the fingerprint of data.
func (t *Truncator) Eval(data []byte) Fingerprint {
	return t.Truncate(Sum(data))
}

// Bytes renders fp as Width() big-endian bytes.
func (t *Truncator) Bytes(fp Fingerprint) []byte {
	out := make([]byte, t.width)
	v := uint64(fp)
	for i := t.width - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// Hex renders fp as uppercase hexadecimal, two digits per byte.
func (t *Truncator) Hex(fp Fingerprint) string {
	return fmt.Sprintf("%0*X", 2*t.width, uint64(fp))
}

// pkg/generator/generator.go
package generator

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand/v2"
)

// Alphabet holds the symbols a sample is made of.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Seed is the master seed material of a stream.
type Seed struct {
	Hi, Lo uint64
}

// RandomSeed draws a seed from the operating system.
func RandomSeed() (Seed, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Seed{}, fmt.Errorf("failed to read random seed: %w", err)
	}
	return Seed{
		Hi: binary.LittleEndian.Uint64(buf[:8]),
		Lo: binary.LittleEndian.Uint64(buf[8:]),
	}, nil
}

func (s Seed) String() string {
	return fmt.Sprintf("%016x%016x", s.Hi, s.Lo)
}

// Source is a position-addressable sample stream. Implementations are not
// safe for concurrent use; every goroutine holds its own.
type Source interface {
	// Seek moves to pos, re-deriving the window.
	Seek(pos uint64)
	// Advance moves to the next position.
	Advance()
	// Position returns the current position.
	Position() uint64
	// Sample returns the current window. It is only valid until the next
	// Seek or Advance.
	Sample() []byte
}

// Generator is the sliding-window sample stream. Sample(p) is bytes
// [p%E, p%E+L) of the PCG stream seeded with (Hi+e, Lo+e), e = p/E.
type Generator struct {
	seed      Seed
	epochSize uint64
	pcg       *mrand.PCG
	pos       uint64
	window    []byte
}

var _ Source = (*Generator)(nil)

// New returns a Generator positioned at 0.
func New(seed Seed, opts ...Option) (*Generator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	g := &Generator{
		seed:      seed,
		epochSize: cfg.epochSize,
		pcg:       mrand.NewPCG(seed.Hi, seed.Lo),
		window:    make([]byte, cfg.length),
	}
	g.Seek(0)
	return g, nil
}

// Len returns the sample length.
func (g *Generator) Len() int { return len(g.window) }

// EpochSize returns the number of positions per reseed point.
func (g *Generator) EpochSize() uint64 { return g.epochSize }

// Seek re-derives the window for pos. Cost is bounded by the epoch size.
func (g *Generator) Seek(pos uint64) {
	epoch := pos / g.epochSize
	g.pcg.Seed(g.seed.Hi+epoch, g.seed.Lo+epoch)
	for skip := pos % g.epochSize; skip > 0; skip-- {
		g.pcg.Uint64()
	}
	for i := range g.window {
		g.window[i] = g.draw()
	}
	g.pos = pos
}

// Advance slides the window by one byte. Crossing into a new epoch reseeds.
func (g *Generator) Advance() {
	next := g.pos + 1
	if next%g.epochSize == 0 {
		g.Seek(next)
		return
	}
	copy(g.window, g.window[1:])
	g.window[len(g.window)-1] = g.draw()
	g.pos = next
}

// Position returns the current position.
func (g *Generator) Position() uint64 { return g.pos }

// Sample returns the current window without copying.
func (g *Generator) Sample() []byte { return g.window }

// At seeks to pos and returns a copy of its sample.
func (g *Generator) At(pos uint64) []byte {
	g.Seek(pos)
	out := make([]byte, len(g.window))
	copy(out, g.window)
	return out
}

func (g *Generator) draw() byte {
	return Alphabet[byte(g.pcg.Uint64())%byte(len(Alphabet))]
}

// Valid reports whether every byte of sample belongs to Alphabet.
func Valid(sample []byte) bool {
	for _, b := range sample {
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		default:
			return false
		}
	}
	return true
}

package search

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/dattu/truncated_collider/pkg/fingerprint"
	"github.com/dattu/truncated_collider/pkg/generator"
)

var (
	// ErrInvalidParams is wrapped by every Params validation failure.
	ErrInvalidParams = errors.New("invalid search parameters")

	// ErrClosed is returned to a worker whose delivery channel is no longer read.
	ErrClosed = errors.New("delivery channel closed")

	// ErrCorruptSample is returned when a re-derived sample is not what the
	// worker hashed. It indicates a generator bug and ends the search.
	ErrCorruptSample = errors.New("re-derived sample is corrupt")

	// ErrExhausted is returned when every position was scanned without a
	// verified collision.
	ErrExhausted = errors.New("position space exhausted")
)

// Params are the tunables of a search.
type Params struct {
	SampleLen       int
	CompareBits     uint
	Workers         int
	BatchSize       int
	ChannelCapacity int
	ProgressStride  uint64
	EpochSize       uint64
	// Positions is the size of the scanned space [0, Positions).
	Positions uint64
	Seed      generator.Seed
	Filter    fingerprint.Filter
}

// DefaultParams returns the parameters of the classic 48-bit run.
func DefaultParams() Params {
	return Params{
		SampleLen:       generator.DefaultLength,
		CompareBits:     48,
		Workers:         runtime.NumCPU(),
		BatchSize:       1024,
		ChannelCapacity: 32,
		ProgressStride:  2_000_000,
		EpochSize:       generator.DefaultEpochSize,
		Positions:       math.MaxUint64,
		Filter:          fingerprint.DefaultFilter,
	}
}

// Validate checks every field.
func (p Params) Validate() error {
	switch {
	case p.SampleLen <= 0:
		return fmt.Errorf("%w: sample length %d", ErrInvalidParams, p.SampleLen)
	case p.CompareBits == 0 || p.CompareBits > fingerprint.MaxBits:
		return fmt.Errorf("%w: compare bits %d", ErrInvalidParams, p.CompareBits)
	case p.Workers <= 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidParams, p.Workers)
	case p.BatchSize <= 0:
		return fmt.Errorf("%w: batch size %d", ErrInvalidParams, p.BatchSize)
	case p.ChannelCapacity < 0:
		return fmt.Errorf("%w: channel capacity %d", ErrInvalidParams, p.ChannelCapacity)
	case p.ProgressStride == 0:
		return fmt.Errorf("%w: progress stride must be greater than 0", ErrInvalidParams)
	case p.EpochSize == 0:
		return fmt.Errorf("%w: epoch size must be greater than 0", ErrInvalidParams)
	}
	if err := p.Filter.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

func (p Params) generatorOptions() []generator.Option {
	return []generator.Option{
		generator.WithLength(p.SampleLen),
		generator.WithEpochSize(p.EpochSize),
	}
}

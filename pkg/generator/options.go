package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned when the sample length is not positive.
	ErrInvalidLength = errors.New("sample length must be greater than 0")

	// ErrInvalidEpochSize is returned when the epoch size is 0.
	ErrInvalidEpochSize = errors.New("epoch size must be greater than 0")
)

const (
	// DefaultLength is the default sample length in bytes.
	DefaultLength = 8

	// DefaultEpochSize is the default number of positions sharing one reseed point.
	DefaultEpochSize = 1024

	// Version identifies the derived-seed formula. Samples are only comparable
	// between runs using the same Version and epoch size.
	Version = 1
)

// Option configures a Generator.
type Option func(*config) error

type config struct {
	length    int
	epochSize uint64
}

func defaultConfig() *config {
	return &config{length: DefaultLength, epochSize: DefaultEpochSize}
}

// WithLength sets the sample length.
func WithLength(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidLength, n)
		}
		c.length = n
		return nil
	}
}

// WithEpochSize sets how many positions share one reseed point.
// Larger epochs reseed less often but cost more draws per Seek.
func WithEpochSize(n uint64) Option {
	return func(c *config) error {
		if n == 0 {
			return ErrInvalidEpochSize
		}
		c.epochSize = n
		return nil
	}
}

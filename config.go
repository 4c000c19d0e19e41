package ifft

import (
	"fmt"
	"time"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// Default configuration values.
const (
	DefaultLength       = 512
	DefaultBlocks       = 2500
	DefaultFenceTimeout = 5 * time.Second
)

// Config describes a Pipeline. It is copied by NewPipeline and cannot be
// changed afterwards.
type Config struct {
	// Length is the transform length N. Must be a power of two, at least 2.
	Length int

	// Blocks is the number of N-point blocks per batch.
	Blocks int

	// NormalizeInPlace scales the result in the buffer the inverse engine
	// wrote instead of the partner buffer.
	NormalizeInPlace bool

	// FenceTimeout bounds every wait for submitted work.
	FenceTimeout time.Duration

	// Label prefixes the debug labels of all GPU objects.
	Label string
}

// DefaultConfig returns 2500 blocks of 512 points with a 5 second fence timeout.
func DefaultConfig() Config {
	return Config{
		Length:       DefaultLength,
		Blocks:       DefaultBlocks,
		FenceTimeout: DefaultFenceTimeout,
		Label:        "ifft",
	}
}

// Samples returns the number of complex samples in one batch.
func (c Config) Samples() int { return c.Length * c.Blocks }

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.Length < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, c.Length)
	}
	if !fftcompute.IsPowerOfTwo(c.Length) {
		return fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, c.Length)
	}
	if c.Blocks <= 0 {
		return fmt.Errorf("%w: %d blocks", ErrInvalidBufferSize, c.Blocks)
	}
	if c.FenceTimeout < 0 {
		return fmt.Errorf("ifft: negative fence timeout %v", c.FenceTimeout)
	}
	return nil
}

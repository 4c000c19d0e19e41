package gpu

import (
	"fmt"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// BufferRole names one of the two buffers of a ping-pong pair.
// Buffer A is the source buffer the host writes; buffer B is scratch.
type BufferRole uint8

const (
	// RoleA selects the source buffer.
	RoleA BufferRole = iota
	// RoleB selects the scratch buffer.
	RoleB
)

// Valid reports whether r is RoleA or RoleB.
func (r BufferRole) Valid() bool { return r == RoleA || r == RoleB }

// Other returns the partner role.
func (r BufferRole) Other() BufferRole {
	if r == RoleA {
		return RoleB
	}
	return RoleA
}

// String returns the string representation of BufferRole.
func (r BufferRole) String() string {
	switch r {
	case RoleA:
		return "A"
	case RoleB:
		return "B"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// ResultRole returns the buffer that holds valid data after the given number
// of ping-pong stages, starting from RoleA.
func ResultRole(stages int) BufferRole {
	if stages%2 == 0 {
		return RoleA
	}
	return RoleB
}

// BufferRef identifies the physical buffer holding a pass's output.
type BufferRef struct {
	Role   BufferRole
	Buffer *ComplexBuffer
}

// pingPong is a validated pair of equally sized buffers holding a whole
// number of n-sample blocks.
type pingPong struct {
	a, b   *ComplexBuffer
	n      int
	blocks int
}

// validateLength checks that n is a usable transform length.
func validateLength(n int) error {
	if n < 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	if !fftcompute.IsPowerOfTwo(n) {
		return fmt.Errorf("%w: got %d", ErrNotPowerOfTwo, n)
	}
	return nil
}

// newPingPong validates the pair. maxBinding is the largest buffer a
// storage binding may cover; zero disables the check.
func newPingPong(a, b *ComplexBuffer, n int, maxBinding uint64) (pingPong, error) {
	if err := validateLength(n); err != nil {
		return pingPong{}, err
	}
	if a == nil || b == nil || a.Raw() == nil || b.Raw() == nil {
		return pingPong{}, ErrNilBuffer
	}
	if a == b || a.Raw() == b.Raw() {
		return pingPong{}, ErrAliasedBuffers
	}
	if a.Size() != b.Size() {
		return pingPong{}, fmt.Errorf("%w: %s is %d bytes, %s is %d bytes",
			ErrBufferSizeMismatch, a.Label(), a.Size(), b.Label(), b.Size())
	}
	if maxBinding > 0 && a.Size() > maxBinding {
		return pingPong{}, fmt.Errorf("%w: %s is %d bytes, storage bindings are limited to %d",
			ErrInvalidBufferSize, a.Label(), a.Size(), maxBinding)
	}
	if a.Samples()%n != 0 {
		return pingPong{}, fmt.Errorf("%w: %d samples is not a multiple of %d",
			ErrInvalidBufferSize, a.Samples(), n)
	}
	return pingPong{a: a, b: b, n: n, blocks: a.Samples() / n}, nil
}

// buffer returns the buffer playing role r.
func (p pingPong) buffer(r BufferRole) *ComplexBuffer {
	if r == RoleA {
		return p.a
	}
	return p.b
}

// ref returns a BufferRef for role r.
func (p pingPong) ref(r BufferRole) BufferRef {
	return BufferRef{Role: r, Buffer: p.buffer(r)}
}

// samples returns the batch size in samples.
func (p pingPong) samples() int { return p.n * p.blocks }

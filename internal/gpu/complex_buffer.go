package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// complexBufferUsage lets a buffer serve as stage input and output, receive
// host uploads and feed the staging copy.
const complexBufferUsage = gputypes.BufferUsageStorage |
	gputypes.BufferUsageCopySrc |
	gputypes.BufferUsageCopyDst

// ComplexBuffer is a GPU storage buffer of interleaved (re, im) float32 samples.
//
// ComplexBuffer is safe for concurrent use. Destroy is idempotent; a buffer
// wrapped with WrapComplexBuffer is never destroyed by this package.
type ComplexBuffer struct {
	mu sync.RWMutex

	device hal.Device
	raw    hal.Buffer
	label  string
	size   uint64

	owned     bool
	destroyed bool
}

// CreateComplexBuffer allocates a storage buffer holding samples complex values.
func CreateComplexBuffer(device hal.Device, label string, samples int) (*ComplexBuffer, error) {
	if device == nil {
		return nil, ErrNilHALDevice
	}
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d samples", ErrInvalidBufferSize, samples)
	}
	size := uint64(samples) * fftcompute.SampleSize //nolint:gosec // samples > 0

	raw, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: complexBufferUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}

	slogger().Debug("fft: buffer created", "label", label, "samples", samples, "bytes", size)
	return &ComplexBuffer{
		device: device,
		raw:    raw,
		label:  label,
		size:   size,
		owned:  true,
	}, nil
}

// WrapComplexBuffer adopts a buffer created elsewhere. size is its byte size
// and must be a whole number of samples. The buffer needs Storage, CopySrc
// and CopyDst usage; the caller keeps ownership.
func WrapComplexBuffer(raw hal.Buffer, label string, size uint64) (*ComplexBuffer, error) {
	if raw == nil {
		return nil, ErrNilBuffer
	}
	if size == 0 || size%fftcompute.SampleSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte samples",
			ErrInvalidBufferSize, size, fftcompute.SampleSize)
	}
	return &ComplexBuffer{raw: raw, label: label, size: size}, nil
}

// Label returns the buffer's debug label.
func (b *ComplexBuffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *ComplexBuffer) Size() uint64 { return b.size }

// Samples returns the number of complex samples the buffer holds.
func (b *ComplexBuffer) Samples() int {
	return int(b.size / fftcompute.SampleSize) //nolint:gosec // bounded by allocation size
}

// Raw returns the underlying buffer handle, or nil after Destroy.
func (b *ComplexBuffer) Raw() hal.Buffer {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.destroyed {
		return nil
	}
	return b.raw
}

// Write uploads data to the start of the buffer through queue.
// data must fit in the buffer.
func (b *ComplexBuffer) Write(queue hal.Queue, data []complex64) error {
	if queue == nil {
		return ErrNilHALDevice
	}
	if len(data) > b.Samples() {
		return fmt.Errorf("%w: %d samples do not fit in %s (%d samples)",
			ErrInvalidBufferSize, len(data), b.label, b.Samples())
	}
	raw := b.Raw()
	if raw == nil {
		return fmt.Errorf("%w: %s is destroyed", ErrNilBuffer, b.label)
	}
	if len(data) == 0 {
		return nil
	}
	queue.WriteBuffer(raw, 0, fftcompute.EncodeSamples(nil, data))
	return nil
}

// binding returns a bind group entry covering the whole buffer.
func (b *ComplexBuffer) binding(index uint32) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: index,
		Resource: gputypes.BufferBinding{
			Buffer: b.Raw().NativeHandle(),
			Offset: 0,
			Size:   b.size,
		},
	}
}

// Destroy releases the buffer. Wrapped buffers are only detached.
func (b *ComplexBuffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	raw := b.raw
	b.raw = nil
	b.mu.Unlock()

	if b.owned && b.device != nil && raw != nil {
		b.device.DestroyBuffer(raw)
	}
}

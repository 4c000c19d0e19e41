package gpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// defaultFenceTimeout bounds every wait for submitted GPU work.
const defaultFenceTimeout = 5 * time.Second

// Option configures an engine during construction.
//
// Example:
//
//	norm, err := gpu.NewNormalizeEngine(dev, queue, src, scratch, 512, gpu.WithInPlace())
type Option func(*engineOptions)

// engineOptions holds optional configuration shared by the FFT engines.
type engineOptions struct {
	label          string
	workgroupSize  uint32
	precompile     bool
	inPlace        bool
	normalizeInput BufferRole
	inputSet       bool
	maxBindingSize uint64
}

// defaultEngineOptions returns the default engine options.
func defaultEngineOptions() engineOptions {
	return engineOptions{
		label:          "ifft",
		workgroupSize:  fftcompute.WorkgroupSize,
		maxBindingSize: uint64(gputypes.DefaultLimits().MaxStorageBufferBindingSize),
	}
}

func applyOptions(opts []Option) (engineOptions, error) {
	o := defaultEngineOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	switch o.workgroupSize {
	case 64, 128, 256:
	default:
		return o, fmt.Errorf("%w: %d (want 64, 128 or 256)", ErrInvalidWorkgroupSize, o.workgroupSize)
	}
	if o.inputSet && !o.normalizeInput.Valid() {
		return o, fmt.Errorf("%w: %s", ErrInvalidRole, o.normalizeInput)
	}
	return o, nil
}

// WithLabel sets the debug label prefix for all GPU objects of the engine.
func WithLabel(label string) Option {
	return func(o *engineOptions) {
		if label != "" {
			o.label = label
		}
	}
}

// WithWorkgroupSize overrides the compute workgroup size (64, 128 or 256).
// The default matches fftcompute.WorkgroupSize.
func WithWorkgroupSize(n uint32) Option {
	return func(o *engineOptions) {
		o.workgroupSize = n
	}
}

// WithPrecompiledSPIRV compiles the WGSL shaders to SPIR-V with naga on the
// host instead of handing WGSL to the backend.
func WithPrecompiledSPIRV() Option {
	return func(o *engineOptions) {
		o.precompile = true
	}
}

// WithInPlace makes the normalize engine overwrite its input buffer instead
// of writing the partner buffer.
func WithInPlace() Option {
	return func(o *engineOptions) {
		o.inPlace = true
	}
}

// WithNormalizeInput selects the buffer the normalize engine reads.
// By default it reads the buffer the inverse engine leaves its result in.
func WithNormalizeInput(role BufferRole) Option {
	return func(o *engineOptions) {
		o.normalizeInput = role
		o.inputSet = true
	}
}

// WithMaxBindingSize sets the largest buffer, in bytes, a storage binding
// may cover on the target device. Buffers above it are rejected at
// construction. The default is the WebGPU default limit; zero disables the
// check.
func WithMaxBindingSize(bytes uint64) Option {
	return func(o *engineOptions) {
		o.maxBindingSize = bytes
	}
}

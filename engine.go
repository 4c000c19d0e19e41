package ifft

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu"
)

// Engine and buffer types for callers that record into their own command
// encoders instead of using Pipeline.
type (
	ComplexBuffer   = gpu.ComplexBuffer
	BufferRole      = gpu.BufferRole
	BufferRef       = gpu.BufferRef
	InverseEngine   = gpu.InverseEngine
	NormalizeEngine = gpu.NormalizeEngine
	StageStep       = gpu.StageStep
	NormalizeStep   = gpu.NormalizeStep
	Submission      = gpu.Submission
	Transfer        = gpu.Transfer
	Option          = gpu.Option
)

// Buffer roles of the ping-pong pair.
const (
	RoleA = gpu.RoleA
	RoleB = gpu.RoleB
)

// Engine options.
var (
	WithLabel            = gpu.WithLabel
	WithWorkgroupSize    = gpu.WithWorkgroupSize
	WithPrecompiledSPIRV = gpu.WithPrecompiledSPIRV
	WithInPlace          = gpu.WithInPlace
	WithNormalizeInput   = gpu.WithNormalizeInput
	WithMaxBindingSize   = gpu.WithMaxBindingSize
)

// ResultRole returns the buffer holding the output after the given number
// of stages: A for an even count, B for an odd one.
func ResultRole(stages int) BufferRole { return gpu.ResultRole(stages) }

// CreateComplexBuffer allocates a storage buffer for samples complex values.
func CreateComplexBuffer(dev *Device, label string, samples int) (*ComplexBuffer, error) {
	return gpu.CreateComplexBuffer(dev.HAL(), label, samples)
}

// NewInverseEngine builds the stage passes for n-point blocks over source
// (buffer A) and scratch (buffer B).
func NewInverseEngine(dev *Device, source, scratch *ComplexBuffer, n int, opts ...Option) (*InverseEngine, error) {
	return gpu.NewInverseEngine(dev.HAL(), dev.Queue(), source, scratch, n, deviceOptions(dev, opts)...)
}

// NewNormalizeEngine builds the 1/N scaling pass over the same pair.
func NewNormalizeEngine(dev *Device, source, scratch *ComplexBuffer, n int, opts ...Option) (*NormalizeEngine, error) {
	return gpu.NewNormalizeEngine(dev.HAL(), dev.Queue(), source, scratch, n, deviceOptions(dev, opts)...)
}

// NewTransfer allocates a staging buffer and readback controller.
func NewTransfer(dev *Device, label string, samples int, cfg Config) (*Transfer, error) {
	return gpu.NewTransfer(dev.HAL(), dev.Queue(), label, samples, cfg.FenceTimeout)
}

// Submit ends encoding and submits enc on dev's queue.
func Submit(dev *Device, enc hal.CommandEncoder, label string) (*Submission, error) {
	return gpu.Submit(dev.HAL(), dev.Queue(), enc, label)
}

// deviceOptions prepends options implied by the device.
func deviceOptions(dev *Device, opts []Option) []Option {
	implied := []Option{gpu.WithMaxBindingSize(dev.MaxStorageBindingSize())}
	if dev.PrecompileSPIRV() {
		implied = append(implied, gpu.WithPrecompiledSPIRV())
	}
	return append(implied, opts...)
}

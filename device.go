package ifft

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu"
)

// Device is an opened GPU device and its queue.
type Device = gpu.Device

// DeviceOptions controls adapter selection.
type DeviceOptions = gpu.DeviceOptions

// OpenDevice opens the preferred adapter of the configured backend.
// Returns ErrNoGPU when no adapter can be opened.
func OpenDevice(opts DeviceOptions) (*Device, error) {
	return gpu.OpenDevice(opts)
}

// OpenDeviceFromProvider shares the GPU device of a host application such
// as a gogpu window. The device is not destroyed by Device.Close.
func OpenDeviceFromProvider(provider gpucontext.DeviceProvider, opts DeviceOptions) (*Device, error) {
	return gpu.OpenDeviceFromProvider(provider, opts)
}

// NewDevice wraps a HAL device and queue the caller already owns.
func NewDevice(device hal.Device, queue hal.Queue, opts DeviceOptions) *Device {
	return gpu.NewDevice(device, queue, opts)
}

// Memory budget limits.
const (
	DefaultMaxMemoryMB = gpu.DefaultMaxMemoryMB
	MinMemoryMB        = gpu.MinMemoryMB
)

// MemoryStats reports buffer memory reserved on a Device.
type MemoryStats = gpu.MemoryStats

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// DeviceOptions controls adapter selection in OpenDevice.
type DeviceOptions struct {
	// Backend selects the HAL backend. The zero value means Vulkan.
	Backend gputypes.Backend

	// PreferDiscrete picks a discrete GPU over an integrated one when both exist.
	PreferDiscrete bool

	// PrecompileSPIRV compiles shaders to SPIR-V with naga on the host.
	PrecompileSPIRV bool

	// MaxMemoryMB caps the buffer memory pipelines may reserve on the
	// device. Values below MinMemoryMB select DefaultMaxMemoryMB.
	MaxMemoryMB int
}

// Device bundles the HAL device and queue the engines run on.
type Device struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	memory   *MemoryBudget

	adapterName string
	deviceType  gputypes.DeviceType
	limits      gputypes.Limits
	precompile  bool
	external    bool
	closed      bool
}

// OpenDevice creates an instance, selects an adapter and opens a device.
func OpenDevice(opts DeviceOptions) (*Device, error) {
	var zero gputypes.Backend
	kind := opts.Backend
	if kind == zero {
		kind = gputypes.BackendVulkan
	}

	backend, ok := hal.GetBackend(kind)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not available", ErrNoGPU, kind)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoGPU, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters, opts.PreferDiscrete)
	if selected == nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", ErrNoGPU)
	}

	// Request everything the adapter supports so large batches can bind.
	limits := selected.Capabilities.Limits
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", ErrNoGPU, err)
	}

	slogger().Info("fft: GPU adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType,
		"max_storage_binding", limits.MaxStorageBufferBindingSize,
		"adapters", len(adapters))
	return &Device{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		adapterName: selected.Info.Name,
		deviceType:  selected.Info.DeviceType,
		precompile:  opts.PrecompileSPIRV,
		limits:      limits,
		memory:      NewMemoryBudget(opts.MaxMemoryMB),
	}, nil
}

// selectAdapter returns the preferred adapter, or nil when there is none.
// Hardware adapters win over software ones; with preferDiscrete a discrete
// GPU wins over an integrated one.
func selectAdapter(adapters []hal.ExposedAdapter, preferDiscrete bool) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	var hardware *hal.ExposedAdapter
	for i := range adapters {
		switch adapters[i].Info.DeviceType {
		case gputypes.DeviceTypeDiscreteGPU:
			if preferDiscrete {
				return &adapters[i]
			}
			if hardware == nil {
				hardware = &adapters[i]
			}
		case gputypes.DeviceTypeIntegratedGPU:
			if hardware == nil {
				hardware = &adapters[i]
			}
		}
	}
	if hardware != nil {
		return hardware
	}
	return &adapters[0]
}

// OpenDeviceFromProvider shares the device of a host application, e.g. a
// gogpu window. The provider must also implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. The shared device is
// never destroyed by Close.
func OpenDeviceFromProvider(provider gpucontext.DeviceProvider, opts DeviceOptions) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, ErrNilHALDevice
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNilHALDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNilHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNilHALDevice)
	}

	d := NewDevice(device, queue, opts)
	slogger().Info("fft: using shared GPU device")
	return d, nil
}

// NewDevice wraps an existing device and queue. The caller keeps ownership.
// Limits are assumed to be the WebGPU defaults.
func NewDevice(device hal.Device, queue hal.Queue, opts DeviceOptions) *Device {
	return &Device{
		device:      device,
		queue:       queue,
		adapterName: "external",
		precompile:  opts.PrecompileSPIRV,
		limits:      gputypes.DefaultLimits(),
		memory:      NewMemoryBudget(opts.MaxMemoryMB),
		external:    true,
	}
}

// HAL returns the HAL device.
func (d *Device) HAL() hal.Device { return d.device }

// Queue returns the HAL queue.
func (d *Device) Queue() hal.Queue { return d.queue }

// AdapterName returns the selected adapter's name, or "external".
func (d *Device) AdapterName() string { return d.adapterName }

// DeviceType returns the selected adapter's device type.
func (d *Device) DeviceType() gputypes.DeviceType { return d.deviceType }

// PrecompileSPIRV reports whether engines should precompile shaders.
func (d *Device) PrecompileSPIRV() bool { return d.precompile }

// Limits returns the limits the device was opened with.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// MaxStorageBindingSize returns the largest buffer, in bytes, one storage
// binding may cover.
func (d *Device) MaxStorageBindingSize() uint64 {
	return uint64(d.limits.MaxStorageBufferBindingSize)
}

// Memory returns the buffer memory budget of the device.
func (d *Device) Memory() *MemoryBudget { return d.memory }

// External reports whether the device is owned by someone else.
func (d *Device) External() bool { return d.external }

// Close destroys the device and instance unless they are shared.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.memory.Close()
	if d.external {
		d.device = nil
		d.queue = nil
		return
	}
	if d.device != nil {
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

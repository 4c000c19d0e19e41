package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// mockDevice implements gpucontext.Device for testing.
type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct{}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }

// mockHALProvider additionally exposes HAL objects, like a gogpu window.
type mockHALProvider struct {
	mockProvider
	device any
	queue  any
}

func (m *mockHALProvider) HalDevice() any { return m.device }
func (m *mockHALProvider) HalQueue() any  { return m.queue }

func TestOpenDeviceFromProvider(t *testing.T) {
	device, queue := newNoopDevice(t)

	dev, err := OpenDeviceFromProvider(&mockHALProvider{device: device, queue: queue}, DeviceOptions{PrecompileSPIRV: true})
	if err != nil {
		t.Fatalf("OpenDeviceFromProvider failed: %v", err)
	}
	if !dev.External() {
		t.Error("External() = false for a shared device")
	}
	if dev.HAL() != device || dev.Queue() != queue {
		t.Error("shared device or queue not passed through")
	}
	if !dev.PrecompileSPIRV() {
		t.Error("PrecompileSPIRV() = false")
	}
	if got, want := dev.MaxStorageBindingSize(), uint64(gputypes.DefaultLimits().MaxStorageBufferBindingSize); got != want {
		t.Errorf("MaxStorageBindingSize() = %d, want %d", got, want)
	}
	if dev.AdapterName() != "external" {
		t.Errorf("AdapterName() = %q", dev.AdapterName())
	}

	dev.Close()
	dev.Close()
	if dev.HAL() != nil {
		t.Error("HAL() should be nil after Close")
	}

	// The shared device must still be usable.
	buf, err := CreateComplexBuffer(device, "after_close", 8)
	if err != nil {
		t.Fatalf("shared device unusable after Close: %v", err)
	}
	buf.Destroy()
}

func TestOpenDeviceFromProviderErrors(t *testing.T) {
	device, queue := newNoopDevice(t)

	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
	}{
		{"nil", nil},
		{"no HAL", &mockProvider{}},
		{"wrong device type", &mockHALProvider{device: "device", queue: queue}},
		{"nil queue", &mockHALProvider{device: device}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := OpenDeviceFromProvider(tt.provider, DeviceOptions{})
			if !errors.Is(err, ErrNilHALDevice) {
				t.Errorf("error = %v, want ErrNilHALDevice", err)
			}
			if dev != nil {
				t.Error("expected nil device on error")
			}
		})
	}
}

func TestSelectAdapter(t *testing.T) {
	if selectAdapter(nil, true) != nil {
		t.Error("selectAdapter(nil) should return nil")
	}

	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	defer instance.Destroy()
	exposed := instance.EnumerateAdapters(nil)
	if len(exposed) == 0 {
		t.Fatal("noop exposes no adapters")
	}

	adapters := []hal.ExposedAdapter{exposed[0], exposed[0]}
	adapters[0].Info.Name = "igpu"
	adapters[0].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU
	adapters[1].Info.Name = "dgpu"
	adapters[1].Info.DeviceType = gputypes.DeviceTypeDiscreteGPU

	if got := selectAdapter(adapters, false).Info.Name; got != "igpu" {
		t.Errorf("selectAdapter(preferDiscrete=false) = %q, want igpu", got)
	}
	if got := selectAdapter(adapters, true).Info.Name; got != "dgpu" {
		t.Errorf("selectAdapter(preferDiscrete=true) = %q, want dgpu", got)
	}
	if got := selectAdapter(adapters[:1], true).Info.Name; got != "igpu" {
		t.Errorf("single adapter = %q, want igpu", got)
	}
}

func TestOpenDeviceVulkan(t *testing.T) {
	dev, err := OpenDevice(DeviceOptions{PreferDiscrete: true})
	if err != nil {
		if !errors.Is(err, ErrNoGPU) {
			t.Errorf("OpenDevice error = %v, want ErrNoGPU", err)
		}
		t.Skipf("GPU not available: %v (expected in CI/test environments)", err)
	}
	defer dev.Close()

	if dev.External() {
		t.Error("owned device reported as external")
	}
	t.Logf("adapter %q (%v)", dev.AdapterName(), dev.DeviceType())
}

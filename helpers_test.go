package ifft

import (
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
	"github.com/stretchr/testify/require"
)

// newNoopDevice wraps a noop HAL device. Pipeline tests cover construction,
// encoding and synchronization; the noop backend does not execute shaders.
func newNoopDevice(t *testing.T) *Device {
	t.Helper()
	return wrapNoopDevice(t, func(d hal.Device) hal.Device { return d })
}

// wrapNoopDevice is newNoopDevice with the HAL device passed through wrap.
func wrapNoopDevice(t *testing.T, wrap func(hal.Device) hal.Device) *Device {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	require.NoError(t, err)
	adapters := instance.EnumerateAdapters(nil)
	require.NotEmpty(t, adapters)
	opened, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	require.NoError(t, err)

	dev := NewDevice(wrap(opened.Device), opened.Queue, DeviceOptions{})
	t.Cleanup(func() {
		dev.Close()
		opened.Device.Destroy()
		instance.Destroy()
	})
	return dev
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Blocks = 4
	cfg.Label = "test"
	return cfg
}

// stalledDevice never signals its fences.
type stalledDevice struct {
	hal.Device
}

func (stalledDevice) Wait(hal.Fence, uint64, time.Duration) (bool, error) {
	return false, nil
}

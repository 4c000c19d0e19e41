package gpu

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// newNoopDevice creates a noop device and queue for testing.
// The device is destroyed after every other cleanup registered by the test.
func newNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// hungDevice never reports fence completion, like a device stuck on a
// long-running or lost submission.
type hungDevice struct {
	hal.Device
}

func (hungDevice) Wait(hal.Fence, uint64, time.Duration) (bool, error) {
	return false, nil
}

// newBufferPair allocates buffers A and B for blocks blocks of n samples.
func newBufferPair(t *testing.T, device hal.Device, n, blocks int) (*ComplexBuffer, *ComplexBuffer) {
	t.Helper()
	a, err := CreateComplexBuffer(device, "test_a", n*blocks)
	if err != nil {
		t.Fatalf("CreateComplexBuffer(A) failed: %v", err)
	}
	b, err := CreateComplexBuffer(device, "test_b", n*blocks)
	if err != nil {
		a.Destroy()
		t.Fatalf("CreateComplexBuffer(B) failed: %v", err)
	}
	t.Cleanup(func() {
		a.Destroy()
		b.Destroy()
	})
	return a, b
}

// beginEncoder returns an encoder ready for recording.
func beginEncoder(t *testing.T, device hal.Device) hal.CommandEncoder {
	t.Helper()
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "test"})
	if err != nil {
		t.Fatalf("CreateCommandEncoder failed: %v", err)
	}
	if err := enc.BeginEncoding("test"); err != nil {
		t.Fatalf("BeginEncoding failed: %v", err)
	}
	return enc
}

// replay executes the recorded schedule of both engines on the host with
// the CPU mirrors of the shaders and returns the normalized output buffer.
func replay(inv *InverseEngine, norm *NormalizeEngine, input []complex64) []complex64 {
	bufs := map[BufferRole][]complex64{
		RoleA: append([]complex64(nil), input...),
		RoleB: make([]complex64, len(input)),
	}
	tw := fftcompute.InverseTwiddles(inv.Length())
	for _, step := range inv.Plan() {
		fftcompute.StageKernel(step.Params, bufs[step.Src], bufs[step.Dst], tw)
	}
	ns := norm.Step()
	fftcompute.NormalizeKernel(ns.Params, bufs[ns.Src], bufs[ns.Dst])
	return bufs[ns.Dst]
}

func randomSamples(count int, seed uint64) []complex64 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]complex64, count)
	for i := range out {
		out[i] = complex(float32(rng.Float64()*2-1), float32(rng.Float64()*2-1))
	}
	return out
}

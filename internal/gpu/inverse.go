package gpu

import (
	"sync"

	"github.com/gogpu/wgpu/hal"
)

// InverseEngine enqueues an unscaled batched inverse FFT.
//
// Every Proc call records the same log2(N) stage passes: stage 0 always
// reads buffer A, so results are repeatable across calls and always land in
// ResultRole(). Division by N is left to NormalizeEngine.
type InverseEngine struct {
	mu         sync.Mutex
	dispatcher *StageDispatcher
	closed     bool
}

// NewInverseEngine builds an inverse FFT engine for n-point blocks over the
// batch held in source (buffer A), using scratch (buffer B) for ping-pong.
//
// n must be a power of two of at least 2, both buffers must be distinct,
// equal in size, and hold a whole number of n-sample blocks.
func NewInverseEngine(
	device hal.Device, queue hal.Queue,
	source, scratch *ComplexBuffer, n int, opts ...Option,
) (*InverseEngine, error) {
	d, err := NewStageDispatcher(device, queue, source, scratch, n, opts...)
	if err != nil {
		return nil, err
	}
	slogger().Info("fft: inverse engine created",
		"n", n,
		"blocks", d.Blocks(),
		"stages", d.Stages(),
		"result", ResultRole(d.Stages()).String())
	return &InverseEngine{dispatcher: d}, nil
}

// Proc records every stage into enc and returns the buffer that will hold
// the unscaled result once the encoder's work has executed. It never waits
// for the device.
func (e *InverseEngine) Proc(enc hal.CommandEncoder) (BufferRef, error) {
	if enc == nil {
		return BufferRef{}, ErrNilEncoder
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return BufferRef{}, ErrEngineClosed
	}
	for s := 0; s < e.dispatcher.Stages(); s++ {
		if err := e.dispatcher.EncodeStage(enc, s); err != nil {
			return BufferRef{}, err
		}
	}
	return e.dispatcher.pair.ref(e.ResultRole()), nil
}

// ResultRole returns the buffer holding the transform after Proc.
func (e *InverseEngine) ResultRole() BufferRole {
	return ResultRole(e.dispatcher.Stages())
}

// Length returns the transform length N.
func (e *InverseEngine) Length() int { return e.dispatcher.Length() }

// Blocks returns the number of blocks in the batch.
func (e *InverseEngine) Blocks() int { return e.dispatcher.Blocks() }

// Stages returns the number of butterfly stages, log2(N).
func (e *InverseEngine) Stages() int { return e.dispatcher.Stages() }

// Plan returns the static stage schedule recorded by Proc.
func (e *InverseEngine) Plan() []StageStep { return e.dispatcher.Plan() }

// Close releases the engine's GPU objects. It is safe to call more than once.
func (e *InverseEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.dispatcher.Close()
}

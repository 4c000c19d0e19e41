package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// NormalizeStep describes the single pass recorded by NormalizeEngine.Proc.
type NormalizeStep struct {
	Src, Dst    BufferRole
	InPlace     bool
	Params      fftcompute.NormalizeParams
	WorkgroupsX uint32
	WorkgroupsY uint32
}

// NormalizeEngine divides every sample of one buffer by N.
//
// By default it reads the buffer InverseEngine leaves its result in and
// writes the partner buffer. WithInPlace overwrites the input instead, and
// WithNormalizeInput picks the input explicitly. Values follow float32
// division: no clamping, NaN and infinities propagate.
type NormalizeEngine struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	pair   pingPong
	opts   engineOptions
	step   NormalizeStep

	module     hal.ShaderModule
	bgLayout   hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	uniform    hal.Buffer
	bindGroup  hal.BindGroup

	closed bool
}

// NewNormalizeEngine builds the normalize pass for n-point blocks over the
// ping-pong pair (source, scratch). Validation matches NewInverseEngine.
func NewNormalizeEngine(
	device hal.Device, queue hal.Queue,
	source, scratch *ComplexBuffer, n int, opts ...Option,
) (*NormalizeEngine, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	pair, err := newPingPong(source, scratch, n, o.maxBindingSize)
	if err != nil {
		return nil, err
	}

	e := &NormalizeEngine{device: device, queue: queue, pair: pair, opts: o}
	e.step = buildNormalizeStep(pair, o)

	if err := e.init(); err != nil {
		e.destroy()
		return nil, err
	}

	slogger().Info("fft: normalize engine created",
		"n", n,
		"blocks", pair.blocks,
		"src", e.step.Src.String(),
		"dst", e.step.Dst.String(),
		"in_place", e.step.InPlace)
	return e, nil
}

func buildNormalizeStep(pair pingPong, o engineOptions) NormalizeStep {
	in := ResultRole(fftcompute.Log2(pair.n))
	if o.inputSet {
		in = o.normalizeInput
	}
	out := in.Other()
	if o.inPlace {
		out = in
	}
	p := fftcompute.NewNormalizeParams(pair.n, pair.samples())
	x, y := fftcompute.WorkgroupsFor(p.Samples, o.workgroupSize)
	p.GroupsX = x
	return NormalizeStep{
		Src:         in,
		Dst:         out,
		InPlace:     o.inPlace,
		Params:      p,
		WorkgroupsX: x,
		WorkgroupsY: y,
	}
}

func (e *NormalizeEngine) layoutEntries() []gputypes.BindGroupLayoutEntry {
	entries := []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
	}
	if e.step.InPlace {
		return append(entries,
			gputypes.BindGroupLayoutEntry{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}})
	}
	return append(entries,
		gputypes.BindGroupLayoutEntry{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		gputypes.BindGroupLayoutEntry{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}})
}

func (e *NormalizeEngine) init() error {
	label := e.opts.label + "_normalize"
	wgsl := shaderNormalize
	if e.step.InPlace {
		wgsl = shaderNormalizeInPlace
	}

	var err error
	e.module, err = createShaderModule(e.device, label, shaderSource(wgsl, e.opts.workgroupSize), e.opts.precompile)
	if err != nil {
		return err
	}

	e.bgLayout, err = e.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: e.layoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout %s: %w", label, err)
	}

	e.pipeLayout, err = e.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{e.bgLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout %s: %w", label, err)
	}

	e.pipeline, err = e.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label,
		Layout:  e.pipeLayout,
		Compute: hal.ComputeState{Module: e.module, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline %s: %w", label, err)
	}

	paramSize := e.step.Params.SizeInBytes()
	e.uniform, err = e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_params",
		Size:  paramSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer %s: %w", label, err)
	}
	e.queue.WriteBuffer(e.uniform, 0, e.step.Params.ToBytes())

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: e.uniform.NativeHandle(), Offset: 0, Size: paramSize}},
		e.pair.buffer(e.step.Src).binding(1),
	}
	if !e.step.InPlace {
		entries = append(entries, e.pair.buffer(e.step.Dst).binding(2))
	}
	e.bindGroup, err = e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label + "_bg",
		Layout:  e.bgLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group %s: %w", label, err)
	}
	return nil
}

// Proc records the normalize pass into enc and returns the buffer that will
// hold the normalized batch. It never waits for the device.
func (e *NormalizeEngine) Proc(enc hal.CommandEncoder) (BufferRef, error) {
	if enc == nil {
		return BufferRef{}, ErrNilEncoder
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return BufferRef{}, ErrEngineClosed
	}

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: e.opts.label + "_normalize"})
	pass.SetPipeline(e.pipeline)
	pass.SetBindGroup(0, e.bindGroup, nil)
	pass.Dispatch(e.step.WorkgroupsX, e.step.WorkgroupsY, 1)
	pass.End()

	dispatchesTotal.WithLabelValues(passNormalize).Inc()
	slogger().Debug("fft: dispatched normalize",
		"src", e.step.Src.String(),
		"dst", e.step.Dst.String(),
		"samples", e.step.Params.Samples,
		"workgroups_x", e.step.WorkgroupsX,
		"workgroups_y", e.step.WorkgroupsY)
	return e.pair.ref(e.step.Dst), nil
}

// InputRole returns the buffer the pass reads.
func (e *NormalizeEngine) InputRole() BufferRole { return e.step.Src }

// OutputRole returns the buffer the pass writes.
func (e *NormalizeEngine) OutputRole() BufferRole { return e.step.Dst }

// Length returns the transform length N.
func (e *NormalizeEngine) Length() int { return e.pair.n }

// Blocks returns the number of blocks in the batch.
func (e *NormalizeEngine) Blocks() int { return e.pair.blocks }

// Step returns the static description of the recorded pass.
func (e *NormalizeEngine) Step() NormalizeStep { return e.step }

// Close releases the engine's GPU objects. It is safe to call more than once.
func (e *NormalizeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.destroy()
}

func (e *NormalizeEngine) destroy() {
	if e.bindGroup != nil {
		e.device.DestroyBindGroup(e.bindGroup)
		e.bindGroup = nil
	}
	if e.uniform != nil {
		e.device.DestroyBuffer(e.uniform)
		e.uniform = nil
	}
	if e.pipeline != nil {
		e.device.DestroyComputePipeline(e.pipeline)
		e.pipeline = nil
	}
	if e.pipeLayout != nil {
		e.device.DestroyPipelineLayout(e.pipeLayout)
		e.pipeLayout = nil
	}
	if e.bgLayout != nil {
		e.device.DestroyBindGroupLayout(e.bgLayout)
		e.bgLayout = nil
	}
	if e.module != nil {
		e.device.DestroyShaderModule(e.module)
		e.module = nil
	}
}

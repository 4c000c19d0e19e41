// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// stage_dispatcher.go owns the butterfly pipeline of the inverse FFT: the
// shader module, layouts, twiddle table, and one uniform buffer plus bind
// group per stage. Everything is created once at construction; encoding a
// stage only records a compute pass.

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// StageStep is one entry of the static stage schedule.
type StageStep struct {
	// Stage is the butterfly stage index in [0, log2(N)).
	Stage int

	// Src is the buffer the stage reads; Dst the buffer it writes.
	Src, Dst BufferRole

	// Params is the uniform uploaded for this stage.
	Params fftcompute.StageParams

	// WorkgroupsX and WorkgroupsY are the dispatch dimensions.
	WorkgroupsX, WorkgroupsY uint32
}

// stageLayoutEntries returns the bind group layout of fft_stage.wgsl:
// params, twiddles, src, dst.
func stageLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
	}
}

// StageDispatcher records the radix-2 stages of a batched inverse FFT.
//
// Stage s reads buffer A when s is even and buffer B when s is odd, and
// writes the other one, so a stage never reads the buffer it writes.
type StageDispatcher struct {
	mu sync.RWMutex

	device hal.Device
	queue  hal.Queue
	pair   pingPong
	opts   engineOptions

	module     hal.ShaderModule
	bgLayout   hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	twiddles   hal.Buffer
	uniforms   []hal.Buffer
	bindGroups []hal.BindGroup

	plan   []StageStep
	closed bool
}

// NewStageDispatcher validates the buffer pair and builds the stage pipeline
// for n-point transforms. source is buffer A and scratch is buffer B.
func NewStageDispatcher(
	device hal.Device, queue hal.Queue,
	source, scratch *ComplexBuffer, n int, opts ...Option,
) (*StageDispatcher, error) {
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

	d := &StageDispatcher{device: device, queue: queue, pair: pair, opts: o}
	d.plan = buildStagePlan(n, pair.blocks, o.workgroupSize)

	if err := d.init(); err != nil {
		d.destroy()
		return nil, err
	}

	slogger().Debug("fft: stage dispatcher ready",
		"label", o.label,
		"n", n,
		"blocks", pair.blocks,
		"stages", len(d.plan),
		"workgroups_x", d.plan[0].WorkgroupsX,
		"workgroups_y", d.plan[0].WorkgroupsY)
	return d, nil
}

// buildStagePlan computes the static schedule for n-point transforms.
func buildStagePlan(n, blocks int, wgSize uint32) []StageStep {
	stages := fftcompute.Log2(n)
	plan := make([]StageStep, stages)
	for s := range plan {
		src := ResultRole(s)
		p := fftcompute.NewStageParams(n, s, blocks)
		x, y := fftcompute.WorkgroupsFor(p.Butterflies, wgSize)
		p.GroupsX = x
		plan[s] = StageStep{
			Stage:       s,
			Src:         src,
			Dst:         src.Other(),
			Params:      p,
			WorkgroupsX: x,
			WorkgroupsY: y,
		}
	}
	return plan
}

// init creates the pipeline objects and per-stage resources.
// On error the caller releases whatever was created with destroy.
func (d *StageDispatcher) init() error {
	label := d.opts.label + "_stage"
	src := shaderSource(shaderFFTStage, d.opts.workgroupSize)

	var err error
	if d.module, err = createShaderModule(d.device, label, src, d.opts.precompile); err != nil {
		return err
	}

	d.bgLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bgl",
		Entries: stageLayoutEntries(),
	})
	if err != nil {
		return fmt.Errorf("create bind group layout %s: %w", label, err)
	}

	d.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{d.bgLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout %s: %w", label, err)
	}

	d.pipeline, err = d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: d.pipeLayout,
		Compute: hal.ComputeState{
			Module:     d.module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline %s: %w", label, err)
	}

	if err := d.createTwiddles(label); err != nil {
		return err
	}
	return d.createStageBindings(label)
}

// createTwiddles uploads the inverse twiddle table once.
func (d *StageDispatcher) createTwiddles(label string) error {
	tw := fftcompute.EncodeSamples(nil, fftcompute.InverseTwiddles(d.pair.n))
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_twiddles",
		Size:  uint64(len(tw)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create twiddle buffer: %w", err)
	}
	d.twiddles = buf
	d.queue.WriteBuffer(buf, 0, tw)
	return nil
}

// createStageBindings creates one uniform buffer and one bind group per stage.
func (d *StageDispatcher) createStageBindings(label string) error {
	twiddleSize := uint64(len(fftcompute.InverseTwiddles(d.pair.n))) * fftcompute.SampleSize

	for _, step := range d.plan {
		params := step.Params.ToBytes()
		ub, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("%s_%d_params", label, step.Stage),
			Size:  step.Params.SizeInBytes(),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer for stage %d: %w", step.Stage, err)
		}
		d.uniforms = append(d.uniforms, ub)
		d.queue.WriteBuffer(ub, 0, params)

		src := d.pair.buffer(step.Src)
		dst := d.pair.buffer(step.Dst)
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  fmt.Sprintf("%s_%d_bg", label, step.Stage),
			Layout: d.bgLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: step.Params.SizeInBytes()}},
				{Binding: 1, Resource: gputypes.BufferBinding{Buffer: d.twiddles.NativeHandle(), Offset: 0, Size: twiddleSize}},
				src.binding(2),
				dst.binding(3),
			},
		})
		if err != nil {
			return fmt.Errorf("create bind group for stage %d: %w", step.Stage, err)
		}
		d.bindGroups = append(d.bindGroups, bg)
	}
	return nil
}

// Plan returns a copy of the static stage schedule.
func (d *StageDispatcher) Plan() []StageStep {
	return append([]StageStep(nil), d.plan...)
}

// Stages returns log2(N).
func (d *StageDispatcher) Stages() int { return len(d.plan) }

// Length returns the transform length N.
func (d *StageDispatcher) Length() int { return d.pair.n }

// Blocks returns the number of N-sample blocks in the batch.
func (d *StageDispatcher) Blocks() int { return d.pair.blocks }

// EncodeStage records the compute pass for stage s into enc.
// enc must be between BeginEncoding and EndEncoding.
func (d *StageDispatcher) EncodeStage(enc hal.CommandEncoder, s int) error {
	if enc == nil {
		return ErrNilEncoder
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrEngineClosed
	}
	if s < 0 || s >= len(d.plan) {
		return fmt.Errorf("fft: stage %d out of range [0, %d)", s, len(d.plan))
	}
	step := d.plan[s]

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{
		Label: fmt.Sprintf("%s_stage_%d", d.opts.label, s),
	})
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, d.bindGroups[s], nil)
	pass.Dispatch(step.WorkgroupsX, step.WorkgroupsY, 1)
	pass.End()

	dispatchesTotal.WithLabelValues(passStage).Inc()
	slogger().Debug("fft: dispatched stage",
		"stage", s,
		"src", step.Src.String(),
		"dst", step.Dst.String(),
		"workgroups_x", step.WorkgroupsX,
		"workgroups_y", step.WorkgroupsY)
	return nil
}

// Close releases all GPU objects held by the dispatcher. The ping-pong
// buffers belong to the caller and are left alone.
func (d *StageDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.destroy()
}

// destroy releases whatever init created, in reverse dependency order.
func (d *StageDispatcher) destroy() {
	for _, bg := range d.bindGroups {
		if bg != nil {
			d.device.DestroyBindGroup(bg)
		}
	}
	d.bindGroups = nil
	for _, ub := range d.uniforms {
		if ub != nil {
			d.device.DestroyBuffer(ub)
		}
	}
	d.uniforms = nil
	if d.twiddles != nil {
		d.device.DestroyBuffer(d.twiddles)
		d.twiddles = nil
	}
	if d.pipeline != nil {
		d.device.DestroyComputePipeline(d.pipeline)
		d.pipeline = nil
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bgLayout != nil {
		d.device.DestroyBindGroupLayout(d.bgLayout)
		d.bgLayout = nil
	}
	if d.module != nil {
		d.device.DestroyShaderModule(d.module)
		d.module = nil
	}
}

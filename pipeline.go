package ifft

import (
	"fmt"
	"sync"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu"
)

// Pipeline owns everything needed to transform one batch shape: buffers
// A and B, both engines and the readback transfer. It is created once and
// reused for every batch without reallocation.
//
// One iteration is Upload -> Encode -> Readback. Upload is rejected while a
// previous iteration has not been read back, so the host never overwrites
// buffer A under work that may still be running. A failed wait leaves that
// work unaccounted for: from then on Upload, Encode and Readback return the
// wait error and the pipeline must be closed.
type Pipeline struct {
	mu sync.Mutex

	dev *Device
	cfg Config

	source  *gpu.ComplexBuffer
	scratch *gpu.ComplexBuffer

	inverse   *gpu.InverseEngine
	normalize *gpu.NormalizeEngine
	transfer  *gpu.Transfer

	reservation string
	closed      bool
}

// NewPipeline validates cfg and builds a pipeline on dev. dev stays owned
// by the caller and must outlive the pipeline.
func NewPipeline(dev *Device, cfg Config, opts ...Option) (*Pipeline, error) {
	if dev == nil || dev.HAL() == nil || dev.Queue() == nil {
		return nil, ErrNilHALDevice
	}
	if cfg.FenceTimeout == 0 {
		cfg.FenceTimeout = DefaultFenceTimeout
	}
	if cfg.Label == "" {
		cfg.Label = "ifft"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	//nolint:gosec // G115: Samples is positive after Validate
	if size, limit := uint64(cfg.Samples())*SampleSize, dev.MaxStorageBindingSize(); size > limit {
		return nil, fmt.Errorf("%w: %d blocks need %d bytes per buffer, device binds at most %d",
			ErrInvalidBufferSize, cfg.Blocks, size, limit)
	}

	p := &Pipeline{dev: dev, cfg: cfg}
	p.reservation = fmt.Sprintf("%s@%p", cfg.Label, p)
	if err := dev.Memory().Reserve(p.reservation, p.MemoryBytes()); err != nil {
		return nil, err
	}
	if err := p.init(opts); err != nil {
		p.destroy()
		return nil, err
	}

	Logger().Info("ifft: pipeline ready",
		"adapter", dev.AdapterName(),
		"n", cfg.Length,
		"blocks", cfg.Blocks,
		"in_place", cfg.NormalizeInPlace,
		"result", p.normalize.OutputRole().String())
	return p, nil
}

func (p *Pipeline) init(opts []Option) error {
	var err error
	device := p.dev.HAL()
	samples := p.cfg.Samples()

	p.source, err = gpu.CreateComplexBuffer(device, p.cfg.Label+"_a", samples)
	if err != nil {
		return err
	}
	p.scratch, err = gpu.CreateComplexBuffer(device, p.cfg.Label+"_b", samples)
	if err != nil {
		return err
	}

	opts = deviceOptions(p.dev, append([]Option{gpu.WithLabel(p.cfg.Label)}, opts...))
	p.inverse, err = gpu.NewInverseEngine(device, p.dev.Queue(), p.source, p.scratch, p.cfg.Length, opts...)
	if err != nil {
		return fmt.Errorf("inverse engine: %w", err)
	}

	normOpts := opts
	if p.cfg.NormalizeInPlace {
		normOpts = append(normOpts[:len(normOpts):len(normOpts)], gpu.WithInPlace())
	}
	p.normalize, err = gpu.NewNormalizeEngine(device, p.dev.Queue(), p.source, p.scratch, p.cfg.Length, normOpts...)
	if err != nil {
		return fmt.Errorf("normalize engine: %w", err)
	}

	p.transfer, err = gpu.NewTransfer(device, p.dev.Queue(), p.cfg.Label, samples, p.cfg.FenceTimeout)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	return nil
}

// MemoryBytes returns the device memory the pipeline allocates: buffers
// A and B plus the staging buffer.
func (p *Pipeline) MemoryBytes() uint64 {
	//nolint:gosec // G115: Samples is positive after Validate
	return 3 * uint64(p.cfg.Samples()) * SampleSize
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config { return p.cfg }

// Inverse returns the inverse FFT engine.
func (p *Pipeline) Inverse() *InverseEngine { return p.inverse }

// Normalize returns the normalize engine.
func (p *Pipeline) Normalize() *NormalizeEngine { return p.normalize }

// Source returns buffer A.
func (p *Pipeline) Source() *ComplexBuffer { return p.source }

// Scratch returns buffer B.
func (p *Pipeline) Scratch() *ComplexBuffer { return p.scratch }

// Upload writes one batch into buffer A. src must hold exactly
// Config().Samples() values.
func (p *Pipeline) Upload(src []complex64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrEngineClosed
	}
	if err := p.transfer.Err(); err != nil {
		return err
	}
	if p.transfer.InFlight() {
		return ErrTransferInFlight
	}
	if len(src) != p.cfg.Samples() {
		return fmt.Errorf("%w: got %d samples, batch holds %d (%d blocks of %d)",
			ErrInvalidBufferSize, len(src), p.cfg.Samples(), p.cfg.Blocks, p.cfg.Length)
	}
	if err := p.source.Write(p.dev.Queue(), src); err != nil {
		return err
	}
	return nil
}

// Encode records the inverse stages, the normalize pass and the staging
// copy into a fresh command encoder and submits it. The returned
// Submission must be passed to Readback.
func (p *Pipeline) Encode() (*Submission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrEngineClosed
	}
	if err := p.transfer.Err(); err != nil {
		return nil, err
	}
	if p.transfer.InFlight() {
		return nil, ErrTransferInFlight
	}

	device := p.dev.HAL()
	enc, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.cfg.Label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(p.cfg.Label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}

	out, err := p.record(enc)
	if err != nil {
		enc.DiscardEncoding()
		p.transfer.Reset()
		return nil, err
	}

	sub, err := gpu.Submit(device, p.dev.Queue(), enc, p.cfg.Label)
	if err != nil {
		p.transfer.Reset()
		return nil, err
	}
	p.transfer.Track(sub)

	Logger().Debug("ifft: batch submitted",
		"result", out.Role.String(),
		"samples", p.cfg.Samples())
	return sub, nil
}

func (p *Pipeline) record(enc hal.CommandEncoder) (BufferRef, error) {
	if _, err := p.inverse.Proc(enc); err != nil {
		return BufferRef{}, err
	}
	out, err := p.normalize.Proc(enc)
	if err != nil {
		return BufferRef{}, err
	}
	if err := p.transfer.EncodeCopy(enc, out); err != nil {
		return BufferRef{}, err
	}
	return out, nil
}

// Readback waits for sub, maps the staging buffer and decodes the
// normalized batch into dst (grown as needed). sub must be the submission
// returned by the latest Encode. The staging buffer is unmapped before
// Readback returns.
func (p *Pipeline) Readback(dst []complex64, sub *Submission) ([]complex64, error) {
	if sub == nil {
		return dst, ErrNilSubmission
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return dst, ErrEngineClosed
	}
	return p.transfer.Read(dst, sub)
}

// Run performs one full iteration: upload src, encode and submit, wait,
// and read the result into dst.
func (p *Pipeline) Run(dst, src []complex64) ([]complex64, error) {
	if err := p.Upload(src); err != nil {
		return dst, err
	}
	sub, err := p.Encode()
	if err != nil {
		return dst, err
	}
	defer sub.Release()
	return p.Readback(dst, sub)
}

// Close destroys the engines and buffers. It is safe to call more than once.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.destroy()
}

func (p *Pipeline) destroy() {
	if p.transfer != nil {
		p.transfer.Close()
	}
	if p.normalize != nil {
		p.normalize.Close()
	}
	if p.inverse != nil {
		p.inverse.Close()
	}
	if p.scratch != nil {
		p.scratch.Destroy()
	}
	if p.source != nil {
		p.source.Destroy()
	}
	p.dev.Memory().Release(p.reservation)
}

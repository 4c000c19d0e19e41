package gpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// Transfer copies a result buffer into a staging buffer and reads it back
// with the map -> wait -> poll -> read -> unmap sequence.
//
// At most one copy is in flight: EncodeCopy is rejected until the previous
// batch has been read and the staging buffer unmapped.
type Transfer struct {
	mu sync.Mutex

	device  hal.Device
	queue   hal.Queue
	staging *StagingBuffer
	timeout time.Duration

	encoded bool
	tracked *Submission
	err     error
}

// NewTransfer allocates a staging buffer for samples complex values.
// A non-positive timeout uses the default of 5 seconds.
func NewTransfer(device hal.Device, queue hal.Queue, label string, samples int, timeout time.Duration) (*Transfer, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("%w: %d samples", ErrInvalidBufferSize, samples)
	}
	size := uint64(samples) * fftcompute.SampleSize //nolint:gosec // samples > 0
	staging, err := CreateStagingBuffer(device, queue, label+"_staging", size)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultFenceTimeout
	}
	return &Transfer{device: device, queue: queue, staging: staging, timeout: timeout}, nil
}

// Staging returns the staging buffer.
func (t *Transfer) Staging() *StagingBuffer { return t.staging }

// InFlight reports whether a copy has been encoded but not read back.
func (t *Transfer) InFlight() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.encoded
}

// EncodeCopy records a copy of src into the staging buffer.
func (t *Transfer) EncodeCopy(enc hal.CommandEncoder, src BufferRef) error {
	if enc == nil {
		return ErrNilEncoder
	}
	if src.Buffer == nil || src.Buffer.Raw() == nil {
		return ErrNilBuffer
	}
	if src.Buffer.Size() != t.staging.Size() {
		return fmt.Errorf("%w: result %s is %d bytes, staging is %d bytes",
			ErrBufferSizeMismatch, src.Buffer.Label(), src.Buffer.Size(), t.staging.Size())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil {
		return t.err
	}
	if t.encoded {
		return ErrTransferInFlight
	}
	if state := t.staging.MapState(); state != MapStateUnmapped {
		return fmt.Errorf("%w: staging is %s", ErrBufferAlreadyMapped, state)
	}
	dst := t.staging.Raw()
	if dst == nil {
		return ErrBufferDestroyed
	}

	enc.CopyBufferToBuffer(src.Buffer.Raw(), dst, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: t.staging.Size()},
	})
	t.encoded = true
	dispatchesTotal.WithLabelValues(passCopy).Inc()
	slogger().Debug("fft: encoded staging copy",
		"src", src.Role.String(),
		"bytes", t.staging.Size())
	return nil
}

// Track associates the submission carrying the encoded copy.
func (t *Transfer) Track(sub *Submission) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked = sub
	t.staging.SetPending(sub)
}

// Read waits for the tracked submission, maps the staging buffer and
// decodes it into dst. sub may be nil, or must be the submission passed to
// Track. The staging buffer is unmapped before Read returns.
//
// A failed wait poisons the Transfer: the copy stays in flight, since the
// device may still be executing it, and every later EncodeCopy and Read
// returns the same error.
func (t *Transfer) Read(dst []complex64, sub *Submission) ([]complex64, error) {
	t.mu.Lock()
	failed, tracked, encoded := t.err, t.tracked, t.encoded
	t.mu.Unlock()

	if failed != nil {
		return dst, failed
	}
	if sub == nil {
		sub = tracked
	}
	if sub == nil {
		return dst, ErrNilSubmission
	}
	if !encoded {
		return dst, fmt.Errorf("%w: no copy was encoded", ErrBufferNotMapped)
	}
	if sub != tracked {
		return dst, fmt.Errorf("%w: %s is not the submission carrying the copy", ErrSubmissionMismatch, sub.label)
	}
	t.staging.SetPending(sub)

	var status MapStatus
	if err := t.staging.MapAsync(gputypes.MapModeRead, 0, t.staging.Size(), func(s MapStatus) {
		status = s
	}); err != nil {
		return dst, err
	}

	if err := sub.Wait(t.timeout); err != nil {
		t.abandon(err)
		return dst, err
	}
	defer t.finish()

	if !t.staging.PollMapAsync() {
		return dst, fmt.Errorf("%w: mapping still pending after completion", ErrMappingFailed)
	}
	if status != MapStatusSuccess {
		return dst, fmt.Errorf("%w: %s", ErrMappingFailed, status)
	}

	data, err := t.staging.GetMappedRange(0, t.staging.Size())
	if err != nil {
		return dst, err
	}
	return fftcompute.DecodeSamples(dst, data)
}

// Err returns the wait failure that poisoned the Transfer, if any.
func (t *Transfer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// abandon cancels the pending map after a failed wait and records err.
// The copy is left in flight.
func (t *Transfer) abandon(err error) {
	if uerr := t.staging.Unmap(); uerr != nil {
		slogger().Warn("fft: cancel staging map", "err", uerr)
	}
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	slogger().Warn("fft: transfer abandoned, device work may still be running", "err", err)
}

// finish unmaps the staging buffer and clears the in-flight state.
func (t *Transfer) finish() {
	if err := t.staging.Unmap(); err != nil {
		slogger().Warn("fft: unmap staging", "err", err)
	}
	t.mu.Lock()
	t.encoded = false
	t.tracked = nil
	t.mu.Unlock()
}

// Reset abandons an encoded copy that was never submitted. It does nothing
// once the Transfer is poisoned.
func (t *Transfer) Reset() {
	if t.Err() != nil {
		return
	}
	t.finish()
}

// Close destroys the staging buffer.
func (t *Transfer) Close() {
	t.staging.Destroy()
}

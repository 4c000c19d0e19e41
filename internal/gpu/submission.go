package gpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Submission is the completion token for one submitted command buffer.
//
// Wait is the single blocking operation: it returns once the GPU has
// finished the work, or reports ErrFenceTimeout or ErrDeviceLost. Both are
// fatal for the batch; a failed Submission keeps returning the same error.
type Submission struct {
	mu sync.Mutex

	device hal.Device
	fence  hal.Fence
	cmdBuf hal.CommandBuffer
	label  string

	submitted time.Time
	done      bool
	err       error
	released  bool
}

// Submit ends encoding on enc, submits the command buffer to queue and
// returns a completion token. enc must not be used afterwards.
func Submit(device hal.Device, queue hal.Queue, enc hal.CommandEncoder, label string) (*Submission, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	if enc == nil {
		return nil, ErrNilEncoder
	}

	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("end encoding %s: %w", label, err)
	}

	fence, err := device.CreateFence()
	if err != nil {
		device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("create fence %s: %w", label, err)
	}

	if err := queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		device.DestroyFence(fence)
		device.FreeCommandBuffer(cmdBuf)
		return nil, fmt.Errorf("submit %s: %w", label, err)
	}

	submissionsTotal.Inc()
	slogger().Debug("fft: submitted", "label", label)
	return &Submission{
		device:    device,
		fence:     fence,
		cmdBuf:    cmdBuf,
		label:     label,
		submitted: time.Now(),
	}, nil
}

// Wait blocks until the submitted work completes or timeout elapses.
// A non-positive timeout uses the default of 5 seconds. Wait may be called
// any number of times; after the first result it returns immediately.
func (s *Submission) Wait(timeout time.Duration) error {
	if s == nil {
		return ErrNilSubmission
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done || s.err != nil {
		return s.err
	}
	if s.released {
		return ErrSubmissionReleased
	}
	if timeout <= 0 {
		timeout = defaultFenceTimeout
	}

	ok, err := s.device.Wait(s.fence, 1, timeout)
	switch {
	case err != nil:
		s.err = fmt.Errorf("%w: %s: %w", ErrDeviceLost, s.label, err)
		fenceFailuresTotal.WithLabelValues("device_lost").Inc()
	case !ok:
		s.err = fmt.Errorf("%w: %s after %v", ErrFenceTimeout, s.label, timeout)
		fenceFailuresTotal.WithLabelValues("timeout").Inc()
	default:
		s.complete()
		return nil
	}
	slogger().Warn("fft: wait failed", "label", s.label, "err", s.err)
	return s.err
}

// Done reports whether the submitted work has completed, without blocking.
func (s *Submission) Done() bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return true
	}
	if s.err != nil || s.released {
		return false
	}
	ok, err := s.device.Wait(s.fence, 1, 0)
	if err != nil || !ok {
		return false
	}
	s.complete()
	return true
}

// Err returns the failure recorded by Wait, if any.
func (s *Submission) Err() error {
	if s == nil {
		return ErrNilSubmission
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// complete marks the work finished and frees the command buffer.
// Must be called with s.mu held.
func (s *Submission) complete() {
	s.done = true
	fenceWaitSeconds.Observe(time.Since(s.submitted).Seconds())
	if s.cmdBuf != nil {
		s.device.FreeCommandBuffer(s.cmdBuf)
		s.cmdBuf = nil
	}
}

// Release destroys the fence and command buffer. Work that has not been
// observed complete is waited for first, so GPU objects are never freed
// while in use; a wait failure is logged and the objects are leaked.
func (s *Submission) Release() {
	if s == nil {
		return
	}
	if !s.Done() && s.Err() == nil {
		if err := s.Wait(defaultFenceTimeout); err != nil && !errors.Is(err, ErrSubmissionReleased) {
			slogger().Warn("fft: releasing unfinished submission", "label", s.label, "err", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if !s.done {
		return
	}
	if s.fence != nil {
		s.device.DestroyFence(s.fence)
		s.fence = nil
	}
}

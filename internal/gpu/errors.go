package gpu

import "errors"

// Configuration errors. All of them are reported at construction time;
// a failed constructor never returns a partially built engine.
var (
	// ErrNotPowerOfTwo is returned when the transform length is not a power of two.
	ErrNotPowerOfTwo = errors.New("gpu: transform length is not a power of two")

	// ErrInvalidLength is returned for transform lengths below 2.
	ErrInvalidLength = errors.New("gpu: transform length must be at least 2")

	// ErrInvalidBufferSize is returned when a buffer does not hold a whole number of blocks.
	ErrInvalidBufferSize = errors.New("gpu: buffer size is not a whole number of blocks")

	// ErrBufferSizeMismatch is returned when the ping-pong buffers differ in size.
	ErrBufferSizeMismatch = errors.New("gpu: ping-pong buffers differ in size")

	// ErrAliasedBuffers is returned when the same buffer is passed as source and scratch.
	ErrAliasedBuffers = errors.New("gpu: source and scratch buffers must be distinct")

	// ErrNilBuffer is returned when a required buffer is nil or destroyed.
	ErrNilBuffer = errors.New("gpu: buffer is nil")

	// ErrNilHALDevice is returned when a constructor receives a nil device or queue.
	ErrNilHALDevice = errors.New("gpu: HAL device or queue is nil")

	// ErrInvalidRole is returned for a BufferRole outside {RoleA, RoleB}.
	ErrInvalidRole = errors.New("gpu: invalid buffer role")

	// ErrInvalidWorkgroupSize is returned when a workgroup size does not match the shaders.
	ErrInvalidWorkgroupSize = errors.New("gpu: unsupported workgroup size")
)

// Device errors. These are fatal for the engine and are never retried.
var (
	// ErrNoGPU is returned when no usable adapter is found.
	ErrNoGPU = errors.New("gpu: no GPU adapter available")

	// ErrDeviceLost is returned when the device fails while waiting for work.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrFenceTimeout is returned when submitted work does not finish in time.
	ErrFenceTimeout = errors.New("gpu: timed out waiting for submitted work")
)

// Protocol errors.
var (
	// ErrEngineClosed is returned when using an engine after Close.
	ErrEngineClosed = errors.New("gpu: engine is closed")

	// ErrNilEncoder is returned when Proc receives a nil command encoder.
	ErrNilEncoder = errors.New("gpu: command encoder is nil")

	// ErrNilSubmission is returned when a readback is requested without a submission.
	ErrNilSubmission = errors.New("gpu: submission is nil")

	// ErrSubmissionReleased is returned when waiting on a released submission.
	ErrSubmissionReleased = errors.New("gpu: submission has been released")

	// ErrTransferInFlight is returned when input is rewritten before the
	// previous batch was read back.
	ErrTransferInFlight = errors.New("gpu: previous batch has not been read back")

	// ErrSubmissionMismatch is returned when a readback names a submission
	// other than the one carrying the staging copy.
	ErrSubmissionMismatch = errors.New("gpu: submission does not carry the staging copy")
)

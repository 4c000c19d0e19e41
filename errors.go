package ifft

import "github.com/gogpu/ifft/internal/gpu"

// Configuration errors. All of them are reported at construction time.
var (
	ErrNotPowerOfTwo        = gpu.ErrNotPowerOfTwo
	ErrInvalidLength        = gpu.ErrInvalidLength
	ErrInvalidBufferSize    = gpu.ErrInvalidBufferSize
	ErrBufferSizeMismatch   = gpu.ErrBufferSizeMismatch
	ErrAliasedBuffers       = gpu.ErrAliasedBuffers
	ErrNilBuffer            = gpu.ErrNilBuffer
	ErrNilHALDevice         = gpu.ErrNilHALDevice
	ErrInvalidRole          = gpu.ErrInvalidRole
	ErrInvalidWorkgroupSize = gpu.ErrInvalidWorkgroupSize
)

// Device errors. They are fatal for the batch and never retried.
var (
	ErrNoGPU        = gpu.ErrNoGPU
	ErrDeviceLost   = gpu.ErrDeviceLost
	ErrFenceTimeout = gpu.ErrFenceTimeout
)

// Protocol errors.
var (
	ErrEngineClosed        = gpu.ErrEngineClosed
	ErrNilEncoder          = gpu.ErrNilEncoder
	ErrNilSubmission       = gpu.ErrNilSubmission
	ErrSubmissionReleased  = gpu.ErrSubmissionReleased
	ErrTransferInFlight    = gpu.ErrTransferInFlight
	ErrSubmissionMismatch  = gpu.ErrSubmissionMismatch
	ErrBufferDestroyed     = gpu.ErrBufferDestroyed
	ErrBufferAlreadyMapped = gpu.ErrBufferAlreadyMapped
	ErrBufferNotMapped     = gpu.ErrBufferNotMapped
	ErrBufferMapPending    = gpu.ErrBufferMapPending
	ErrInvalidMapRange     = gpu.ErrInvalidMapRange
	ErrMappingFailed       = gpu.ErrMappingFailed
)

// Memory budget errors.
var (
	ErrMemoryBudgetExceeded = gpu.ErrMemoryBudgetExceeded
	ErrMemoryBudgetClosed   = gpu.ErrMemoryBudgetClosed
)

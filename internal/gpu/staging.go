package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Staging buffer errors.
var (
	// ErrBufferDestroyed is returned when operating on a destroyed buffer.
	ErrBufferDestroyed = errors.New("gpu: buffer has been destroyed")

	// ErrBufferAlreadyMapped is returned when attempting to map an already mapped buffer.
	ErrBufferAlreadyMapped = errors.New("gpu: buffer is already mapped or mapping is pending")

	// ErrBufferNotMapped is returned when attempting to access unmapped buffer data.
	ErrBufferNotMapped = errors.New("gpu: buffer is not mapped")

	// ErrBufferMapPending is returned when accessing a buffer with a pending map operation.
	ErrBufferMapPending = errors.New("gpu: buffer mapping is pending")

	// ErrInvalidMapMode is returned when mapping with an unsupported mode.
	ErrInvalidMapMode = errors.New("gpu: invalid map mode")

	// ErrInvalidMapRange is returned when the map range is out of bounds or misaligned.
	ErrInvalidMapRange = errors.New("gpu: map range out of bounds")

	// ErrMappingFailed is returned when the device read behind a mapping fails.
	ErrMappingFailed = errors.New("gpu: buffer mapping failed")

	// ErrCallbackNil is returned when MapAsync is called with a nil callback.
	ErrCallbackNil = errors.New("gpu: map callback is nil")
)

// mapAlignment is the WebGPU alignment for map offsets and sizes.
const mapAlignment uint64 = 8

// MapState is the mapping state of a StagingBuffer.
type MapState int

const (
	// MapStateUnmapped means the buffer may be used as a copy destination.
	MapStateUnmapped MapState = iota
	// MapStatePending means a map request waits for the GPU.
	MapStatePending
	// MapStateMapped means the mapped range may be read.
	MapStateMapped
)

// String returns the string representation of MapState.
func (s MapState) String() string {
	switch s {
	case MapStateUnmapped:
		return "Unmapped"
	case MapStatePending:
		return "Pending"
	case MapStateMapped:
		return "Mapped"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MapStatus is passed to MapAsync callbacks.
type MapStatus int

const (
	// MapStatusSuccess indicates mapping completed successfully.
	MapStatusSuccess MapStatus = iota
	// MapStatusValidationError indicates the request was rejected.
	MapStatusValidationError
	// MapStatusDeviceError indicates the device read failed.
	MapStatusDeviceError
	// MapStatusDestroyedBeforeCallback indicates the buffer was destroyed while pending.
	MapStatusDestroyedBeforeCallback
	// MapStatusUnmappedBeforeCallback indicates the buffer was unmapped while pending.
	MapStatusUnmappedBeforeCallback
)

// String returns the string representation of MapStatus.
func (s MapStatus) String() string {
	switch s {
	case MapStatusSuccess:
		return "Success"
	case MapStatusValidationError:
		return "ValidationError"
	case MapStatusDeviceError:
		return "DeviceError"
	case MapStatusDestroyedBeforeCallback:
		return "DestroyedBeforeCallback"
	case MapStatusUnmappedBeforeCallback:
		return "UnmappedBeforeCallback"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// StagingBuffer is a CPU-readable copy destination with the WebGPU
// map/poll/unmap protocol.
//
// Lifecycle:
//  1. A copy into the buffer is encoded and its Submission tracked with SetPending
//  2. MapAsync requests a read mapping (Unmapped -> Pending)
//  3. PollMapAsync completes the mapping once the tracked work is done (Pending -> Mapped)
//  4. GetMappedRange exposes the bytes
//  5. Unmap returns the buffer to Unmapped; it may then be copied into again
//
// StagingBuffer is safe for concurrent use. Callbacks run without the lock held.
type StagingBuffer struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	raw    hal.Buffer
	label  string
	size   uint64

	state     MapState
	mapOffset uint64
	mapSize   uint64
	mapped    []byte
	callback  func(MapStatus)
	pending   *Submission

	destroyed bool
}

// CreateStagingBuffer allocates a MapRead|CopyDst buffer of size bytes.
func CreateStagingBuffer(device hal.Device, queue hal.Queue, label string, size uint64) (*StagingBuffer, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	if size == 0 || size%mapAlignment != 0 {
		return nil, fmt.Errorf("%w: staging size %d must be a positive multiple of %d",
			ErrInvalidBufferSize, size, mapAlignment)
	}
	raw, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer %s: %w", label, err)
	}
	stagingBuffersLive.Inc()
	return &StagingBuffer{
		device: device,
		queue:  queue,
		raw:    raw,
		label:  label,
		size:   size,
	}, nil
}

// Label returns the buffer's debug label.
func (b *StagingBuffer) Label() string { return b.label }

// Size returns the buffer size in bytes.
func (b *StagingBuffer) Size() uint64 { return b.size }

// MapState returns the current mapping state.
func (b *StagingBuffer) MapState() MapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Raw returns the underlying buffer handle, or nil after Destroy.
func (b *StagingBuffer) Raw() hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil
	}
	return b.raw
}

// SetPending records the submission whose work writes this buffer.
// PollMapAsync does not complete a mapping before it has finished.
func (b *StagingBuffer) SetPending(sub *Submission) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = sub
}

// MapAsync requests a read mapping of [offset, offset+size).
//
// The request is validated synchronously; on failure callback receives a
// status and the error is returned. On success the state becomes Pending
// and callback runs from the PollMapAsync call that completes the mapping.
func (b *StagingBuffer) MapAsync(mode gputypes.MapMode, offset, size uint64, callback func(MapStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return ErrBufferDestroyed
	}
	if callback == nil {
		return ErrCallbackNil
	}
	if b.state != MapStateUnmapped {
		return ErrBufferAlreadyMapped
	}

	var err error
	switch {
	case mode != gputypes.MapModeRead:
		err = fmt.Errorf("%w: staging buffers only support MapModeRead", ErrInvalidMapMode)
	case offset%mapAlignment != 0:
		err = fmt.Errorf("%w: offset %d must be %d-byte aligned", ErrInvalidMapRange, offset, mapAlignment)
	case offset > b.size || size > b.size-offset:
		err = fmt.Errorf("%w: offset %d + size %d > buffer size %d", ErrInvalidMapRange, offset, size, b.size)
	case size%mapAlignment != 0 && offset+size != b.size:
		err = fmt.Errorf("%w: size %d must be %d-byte aligned", ErrInvalidMapRange, size, mapAlignment)
	}
	if err != nil {
		b.mu.Unlock()
		callback(MapStatusValidationError)
		b.mu.Lock()
		return err
	}

	b.state = MapStatePending
	b.mapOffset = offset
	b.mapSize = size
	b.callback = callback
	return nil
}

// PollMapAsync advances a pending mapping without blocking.
//
// It returns true when no mapping is pending any more (completed, failed
// or never requested) and false while the tracked submission is still
// running.
func (b *StagingBuffer) PollMapAsync() bool {
	b.mu.Lock()
	if b.state != MapStatePending {
		b.mu.Unlock()
		return true
	}
	pending := b.pending
	b.mu.Unlock()

	if pending != nil && !pending.Done() {
		return false
	}

	b.mu.Lock()
	if b.state != MapStatePending || b.destroyed {
		b.mu.Unlock()
		return true
	}
	data := make([]byte, b.mapSize)
	status := MapStatusSuccess
	if err := b.queue.ReadBuffer(b.raw, b.mapOffset, data); err != nil {
		slogger().Warn("fft: staging read failed", "label", b.label, "err", err)
		status = MapStatusDeviceError
		b.state = MapStateUnmapped
	} else {
		b.mapped = data
		b.state = MapStateMapped
		readbackBytesTotal.Add(float64(len(data)))
	}
	b.pending = nil
	callback := b.callback
	b.callback = nil
	b.mu.Unlock()

	if callback != nil {
		callback(status)
	}
	return true
}

// GetMappedRange returns the mapped bytes of [offset, offset+size).
// The slice is only valid until Unmap.
func (b *StagingBuffer) GetMappedRange(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	if b.state == MapStatePending {
		return nil, ErrBufferMapPending
	}
	if b.state != MapStateMapped {
		return nil, ErrBufferNotMapped
	}
	if offset < b.mapOffset || offset+size > b.mapOffset+b.mapSize {
		return nil, fmt.Errorf("%w: [%d, %d) outside mapped region [%d, %d)",
			ErrInvalidMapRange, offset, offset+size, b.mapOffset, b.mapOffset+b.mapSize)
	}
	rel := offset - b.mapOffset
	return b.mapped[rel : rel+size], nil
}

// Unmap returns the buffer to Unmapped. A pending request is cancelled and
// its callback receives MapStatusUnmappedBeforeCallback. Unmapping an
// unmapped buffer is a no-op.
func (b *StagingBuffer) Unmap() error {
	b.mu.Lock()

	if b.destroyed {
		b.mu.Unlock()
		return ErrBufferDestroyed
	}
	callback := b.callback
	wasPending := b.state == MapStatePending
	b.state = MapStateUnmapped
	b.mapped = nil
	b.callback = nil
	b.mu.Unlock()

	if wasPending && callback != nil {
		callback(MapStatusUnmappedBeforeCallback)
	}
	return nil
}

// Destroy releases the buffer. It is idempotent.
func (b *StagingBuffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	callback := b.callback
	wasPending := b.state == MapStatePending
	raw := b.raw
	b.raw = nil
	b.mapped = nil
	b.callback = nil
	b.pending = nil
	b.state = MapStateUnmapped
	b.mu.Unlock()

	if wasPending && callback != nil {
		callback(MapStatusDestroyedBeforeCallback)
	}
	if raw != nil {
		b.device.DestroyBuffer(raw)
	}
	stagingBuffersLive.Dec()
}

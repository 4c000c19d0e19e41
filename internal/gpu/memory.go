package gpu

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Memory budget errors.
var (
	// ErrMemoryBudgetExceeded is returned when a reservation would exceed the budget.
	ErrMemoryBudgetExceeded = errors.New("gpu: memory budget exceeded")

	// ErrMemoryBudgetClosed is returned when reserving on a closed budget.
	ErrMemoryBudgetClosed = errors.New("gpu: memory budget closed")

	// ErrDuplicateReservation is returned when a label is reserved twice.
	ErrDuplicateReservation = errors.New("gpu: memory already reserved under this label")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default device memory budget (1 GB).
	DefaultMaxMemoryMB = 1024

	// MinMemoryMB is the minimum allowed memory budget (16 MB).
	MinMemoryMB = 16
)

// MemoryStats contains buffer memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently reserved memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining budget.
	AvailableBytes uint64

	// Reservations is the number of live reservations.
	Reservations int

	// Utilization is the fraction of the budget in use (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d reservations]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.Reservations)
}

// MemoryBudget accounts for the buffers allocated on one device. Buffers
// backing a pipeline cannot be evicted, so a reservation that does not
// fit is refused before any GPU allocation happens.
//
// MemoryBudget is safe for concurrent use.
type MemoryBudget struct {
	mu sync.RWMutex

	budgetBytes  uint64
	usedBytes    uint64
	reservations map[string]uint64
	closed       bool
}

// NewMemoryBudget creates a budget of megabytes MB. Values below
// MinMemoryMB select DefaultMaxMemoryMB.
func NewMemoryBudget(megabytes int) *MemoryBudget {
	if megabytes < MinMemoryMB {
		megabytes = DefaultMaxMemoryMB
	}
	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	return &MemoryBudget{
		budgetBytes:  uint64(megabytes) * 1024 * 1024,
		reservations: make(map[string]uint64),
	}
}

// Reserve records size bytes under label.
func (m *MemoryBudget) Reserve(label string, size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMemoryBudgetClosed
	}
	if _, ok := m.reservations[label]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateReservation, label)
	}
	if size > m.budgetBytes-m.usedBytes {
		return fmt.Errorf("%w: %s needs %d bytes, %d of %d available",
			ErrMemoryBudgetExceeded, label, size, m.budgetBytes-m.usedBytes, m.budgetBytes)
	}
	m.reservations[label] = size
	m.usedBytes += size
	slogger().Debug("fft: memory reserved",
		"label", label,
		"bytes", size,
		"used", m.usedBytes)
	return nil
}

// Release frees the reservation under label. Unknown labels are ignored.
func (m *MemoryBudget) Release(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, ok := m.reservations[label]
	if !ok {
		return
	}
	delete(m.reservations, label)
	m.usedBytes -= size
}

// Stats returns current memory usage statistics.
func (m *MemoryBudget) Stats() MemoryStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var utilization float64
	if m.budgetBytes > 0 {
		utilization = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		AvailableBytes: m.budgetBytes - m.usedBytes,
		Reservations:   len(m.reservations),
		Utilization:    utilization,
	}
}

// SetBudget updates the budget. It fails when current reservations
// already exceed the new size.
func (m *MemoryBudget) SetBudget(megabytes int) error {
	if megabytes < MinMemoryMB {
		megabytes = MinMemoryMB
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMemoryBudgetClosed
	}
	//nolint:gosec // G115: megabytes bounded by MinMemoryMB minimum
	budget := uint64(megabytes) * 1024 * 1024
	if budget < m.usedBytes {
		return fmt.Errorf("%w: %d bytes already reserved", ErrMemoryBudgetExceeded, m.usedBytes)
	}
	m.budgetBytes = budget
	return nil
}

// Labels returns the live reservation labels in sorted order.
func (m *MemoryBudget) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	labels := make([]string, 0, len(m.reservations))
	for l := range m.reservations {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Close drops every reservation and refuses new ones.
func (m *MemoryBudget) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if len(m.reservations) > 0 {
		slogger().Warn("fft: memory budget closed with live reservations",
			"count", len(m.reservations),
			"bytes", m.usedBytes)
	}
	m.reservations = nil
	m.usedBytes = 0
	m.closed = true
}

package fftcompute

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		name    string
		threads uint32
		wantX   uint32
		wantY   uint32
	}{
		{"zero", 0, 0, 0},
		{"one", 1, 1, 1},
		{"exact", 256, 1, 1},
		{"one over", 257, 2, 1},
		{"default batch", 2500 * 256, 2500, 1},
		{"limit", MaxWorkgroupsPerDim * WorkgroupSize, MaxWorkgroupsPerDim, 1},
		{"spill", (MaxWorkgroupsPerDim + 1) * WorkgroupSize, MaxWorkgroupsPerDim, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := Workgroups(tt.threads)
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
			if tt.threads > 0 {
				assert.GreaterOrEqual(t, uint64(x)*uint64(y)*WorkgroupSize, uint64(tt.threads))
			}
		})
	}
}

func TestNewStageParams(t *testing.T) {
	p := NewStageParams(512, 3, 10)
	assert.Equal(t, uint32(512), p.N)
	assert.Equal(t, uint32(256), p.HalfN)
	assert.Equal(t, uint32(8), p.Ns)
	assert.Equal(t, uint32(32), p.TwiddleStride)
	assert.Equal(t, uint32(2560), p.Butterflies)
	assert.Equal(t, uint32(10), p.GroupsX)
	assert.Equal(t, uint32(3), p.Stage)
	assert.Equal(t, uint32(10), p.Blocks)
}

func TestStageParamsToBytes(t *testing.T) {
	p := NewStageParams(512, 8, 2500)
	b := p.ToBytes()
	require.Len(t, b, int(p.SizeInBytes()))

	le := binary.LittleEndian
	assert.Equal(t, uint32(512), le.Uint32(b[0:]))
	assert.Equal(t, uint32(256), le.Uint32(b[4:]))
	assert.Equal(t, uint32(256), le.Uint32(b[8:]))
	assert.Equal(t, uint32(1), le.Uint32(b[12:]))
	assert.Equal(t, uint32(2500*256), le.Uint32(b[16:]))
	assert.Equal(t, uint32(8), le.Uint32(b[24:]))
	assert.Equal(t, uint32(2500), le.Uint32(b[28:]))
}

func TestNormalizeParamsToBytes(t *testing.T) {
	p := NewNormalizeParams(512, 512*3)
	b := p.ToBytes()
	require.Len(t, b, int(p.SizeInBytes()))

	le := binary.LittleEndian
	assert.Equal(t, uint32(1536), le.Uint32(b[0:]))
	assert.Equal(t, uint32(6), le.Uint32(b[4:]))
	assert.Equal(t, float32(512), math.Float32frombits(le.Uint32(b[8:])))
	assert.Equal(t, uint32(0), le.Uint32(b[12:]))
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 512, 1 << 20} {
		assert.True(t, IsPowerOfTwo(n), n)
	}
	for _, n := range []int{-4, 0, 3, 6, 500, 513} {
		assert.False(t, IsPowerOfTwo(n), n)
	}
	assert.Equal(t, 9, Log2(512))
	assert.Equal(t, 0, Log2(1))
}

func TestInverseTwiddles(t *testing.T) {
	tw := InverseTwiddles(512)
	require.Len(t, tw, 256)
	assert.Equal(t, complex64(1), tw[0])
	// Quarter turn is +i for the inverse direction.
	assert.InDelta(t, 0, real(tw[128]), 1e-7)
	assert.InDelta(t, 1, imag(tw[128]), 1e-7)
	for i, w := range tw {
		mag := math.Hypot(float64(real(w)), float64(imag(w)))
		assert.InDelta(t, 1, mag, 1e-6, "twiddle %d", i)
	}
}

func TestWorkgroupsForSmallerGroups(t *testing.T) {
	x, y := WorkgroupsFor(512*10/2, 64)
	assert.Equal(t, uint32(40), x)
	assert.Equal(t, uint32(1), y)

	x, y = WorkgroupsFor(100, 0)
	assert.Zero(t, x)
	assert.Zero(t, y)
}

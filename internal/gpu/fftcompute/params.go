// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Uniform parameter layouts shared by fft_stage.wgsl, normalize.wgsl and
// normalize_inplace.wgsl. Field order and sizes must match the WGSL structs.

package fftcompute

import (
	"encoding/binary"
	"math"
	"math/bits"
)

const (
	// WorkgroupSize matches @workgroup_size in every FFT shader.
	WorkgroupSize = 256

	// MaxWorkgroupsPerDim is the WebGPU default maxComputeWorkgroupsPerDimension.
	MaxWorkgroupsPerDim = 65535

	// stageParamsSize is 8 consecutive u32 fields.
	stageParamsSize = 8 * 4

	// normalizeParamsSize is u32, u32, f32, u32.
	normalizeParamsSize = 4 * 4
)

// StageParams is the per-stage uniform of fft_stage.wgsl.
//
// One butterfly invocation handles the pair (j, j+N/2) of one block, so a
// stage covers Blocks*N/2 invocations.
type StageParams struct {
	N             uint32 // transform length
	HalfN         uint32 // N/2
	Ns            uint32 // 2^stage, size of the sub-transforms already combined
	TwiddleStride uint32 // N/(2*Ns)
	Butterflies   uint32 // Blocks*N/2
	GroupsX       uint32 // workgroups along x, used to linearize (x, y) dispatches
	Stage         uint32
	Blocks        uint32
}

// NewStageParams returns the uniform for stage s of an n-point transform over
// blocks blocks. n must be a power of two and s < log2(n).
func NewStageParams(n, stage, blocks int) StageParams {
	ns := 1 << stage
	//nolint:gosec // G115: n, stage and blocks are validated by the engine
	p := StageParams{
		N:             uint32(n),
		HalfN:         uint32(n / 2),
		Ns:            uint32(ns),
		TwiddleStride: uint32(n / (2 * ns)),
		Butterflies:   uint32(blocks) * uint32(n/2),
		Stage:         uint32(stage),
		Blocks:        uint32(blocks),
	}
	p.GroupsX, _ = Workgroups(p.Butterflies)
	return p
}

// SizeInBytes returns the uniform buffer size for StageParams.
func (p StageParams) SizeInBytes() uint64 { return stageParamsSize }

// ToBytes serializes the params in the little-endian layout of the WGSL struct.
func (p StageParams) ToBytes() []byte {
	buf := make([]byte, stageParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.N)
	le.PutUint32(buf[4:8], p.HalfN)
	le.PutUint32(buf[8:12], p.Ns)
	le.PutUint32(buf[12:16], p.TwiddleStride)
	le.PutUint32(buf[16:20], p.Butterflies)
	le.PutUint32(buf[20:24], p.GroupsX)
	le.PutUint32(buf[24:28], p.Stage)
	le.PutUint32(buf[28:32], p.Blocks)
	return buf
}

// NormalizeParams is the uniform of normalize.wgsl and normalize_inplace.wgsl.
type NormalizeParams struct {
	Samples uint32
	GroupsX uint32
	Divisor float32
	_       uint32
}

// NewNormalizeParams returns the uniform for dividing samples values by n.
func NewNormalizeParams(n, samples int) NormalizeParams {
	//nolint:gosec // G115: samples is validated by the engine
	p := NormalizeParams{Samples: uint32(samples), Divisor: float32(n)}
	p.GroupsX, _ = Workgroups(p.Samples)
	return p
}

// SizeInBytes returns the uniform buffer size for NormalizeParams.
func (p NormalizeParams) SizeInBytes() uint64 { return normalizeParamsSize }

// ToBytes serializes the params in the little-endian layout of the WGSL struct.
func (p NormalizeParams) ToBytes() []byte {
	buf := make([]byte, normalizeParamsSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], p.Samples)
	le.PutUint32(buf[4:8], p.GroupsX)
	le.PutUint32(buf[8:12], math.Float32bits(p.Divisor))
	return buf
}

// Workgroups returns the (x, y) workgroup counts covering threads invocations
// at WorkgroupSize.
func Workgroups(threads uint32) (x, y uint32) {
	return WorkgroupsFor(threads, WorkgroupSize)
}

// WorkgroupsFor returns the (x, y) workgroup counts covering threads
// invocations at the given workgroup size. The count spills into y once x
// would exceed MaxWorkgroupsPerDim; shaders linearize with
// gid.x + gid.y*GroupsX*size and bounds-check against the thread count.
func WorkgroupsFor(threads, size uint32) (x, y uint32) {
	if threads == 0 || size == 0 {
		return 0, 0
	}
	total := (threads + size - 1) / size
	if total <= MaxWorkgroupsPerDim {
		return total, 1
	}
	return MaxWorkgroupsPerDim, (total + MaxWorkgroupsPerDim - 1) / MaxWorkgroupsPerDim
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n.
func Log2(n int) int {
	return bits.TrailingZeros(uint(n))
}

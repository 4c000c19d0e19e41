// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fftcompute

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// SampleSize is the byte size of one complex sample: float32 real then
// float32 imaginary, little-endian. This matches vec2<f32> in the shaders.
const SampleSize = 8

// ErrSampleLayout is returned when a byte slice is not a whole number of samples.
var ErrSampleLayout = errors.New("fftcompute: byte length is not a multiple of the sample size")

// EncodeSamples appends the byte layout of src to dst[:0] and returns it.
func EncodeSamples(dst []byte, src []complex64) []byte {
	need := len(src) * SampleSize
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]
	le := binary.LittleEndian
	for i, c := range src {
		le.PutUint32(dst[i*SampleSize:], math.Float32bits(real(c)))
		le.PutUint32(dst[i*SampleSize+4:], math.Float32bits(imag(c)))
	}
	return dst
}

// DecodeSamples reinterprets src as interleaved (re, im) float32 pairs.
func DecodeSamples(dst []complex64, src []byte) ([]complex64, error) {
	if len(src)%SampleSize != 0 {
		return dst, fmt.Errorf("%w: %d bytes", ErrSampleLayout, len(src))
	}
	n := len(src) / SampleSize
	if cap(dst) < n {
		dst = make([]complex64, n)
	}
	dst = dst[:n]
	le := binary.LittleEndian
	for i := range dst {
		re := math.Float32frombits(le.Uint32(src[i*SampleSize:]))
		im := math.Float32frombits(le.Uint32(src[i*SampleSize+4:]))
		dst[i] = complex(re, im)
	}
	return dst, nil
}

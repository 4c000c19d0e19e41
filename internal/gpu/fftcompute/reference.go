// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fftcompute

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrBlockLength is returned when a batch is not a whole number of blocks.
var ErrBlockLength = errors.New("fftcompute: batch length is not a multiple of the block length")

// Reference computes block-wise inverse DFTs in float64 with gonum.
type Reference struct {
	n     int
	fft   *fourier.CmplxFFT
	coeff []complex128
	seq   []complex128
}

// NewReference returns a reference transform for blocks of length n.
func NewReference(n int) (*Reference, error) {
	if n < 1 {
		return nil, fmt.Errorf("fftcompute: invalid reference length %d", n)
	}
	return &Reference{
		n:     n,
		fft:   fourier.NewCmplxFFT(n),
		coeff: make([]complex128, n),
		seq:   make([]complex128, n),
	}, nil
}

// Len returns the block length.
func (r *Reference) Len() int { return r.n }

// Inverse writes the inverse DFT of every block of src into dst, scaled by 1/n
// when scaled is true. gonum's Sequence is unnormalized.
func (r *Reference) Inverse(dst, src []complex64, scaled bool) ([]complex64, error) {
	if len(src)%r.n != 0 {
		return dst, fmt.Errorf("%w: %d samples, block %d", ErrBlockLength, len(src), r.n)
	}
	if cap(dst) < len(src) {
		dst = make([]complex64, len(src))
	}
	dst = dst[:len(src)]

	scale := 1.0
	if scaled {
		scale = 1 / float64(r.n)
	}
	for off := 0; off < len(src); off += r.n {
		for i := range r.coeff {
			r.coeff[i] = complex128(src[off+i])
		}
		r.seq = r.fft.Sequence(r.seq, r.coeff)
		for i, v := range r.seq {
			dst[off+i] = complex64(complex(real(v)*scale, imag(v)*scale))
		}
	}
	return dst, nil
}

// ReferenceInverse is a convenience wrapper returning the scaled inverse DFT.
func ReferenceInverse(src []complex64, n int) ([]complex64, error) {
	r, err := NewReference(n)
	if err != nil {
		return nil, err
	}
	return r.Inverse(nil, src, true)
}

// MaxAbsError returns the largest absolute difference over all real and
// imaginary components. Slices of different length compare as +Inf.
func MaxAbsError(a, b []complex64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var maxErr float64
	for i := range a {
		dr := math.Abs(float64(real(a[i])) - float64(real(b[i])))
		di := math.Abs(float64(imag(a[i])) - float64(imag(b[i])))
		maxErr = math.Max(maxErr, math.Max(dr, di))
	}
	return maxErr
}

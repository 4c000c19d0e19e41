// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// CPU versions of fft_stage.wgsl and normalize.wgsl. Each function walks the
// same invocation index space as the GPU dispatch and performs the same
// float32 operations, so a recorded stage schedule can be replayed on the host.

package fftcompute

// StageKernel runs one radix-2 Stockham stage over every block.
// It reads only src and writes only dst; the two must not alias.
func StageKernel(p StageParams, src, dst, twiddles []complex64) {
	for t := uint32(0); t < p.Butterflies; t++ {
		stageInvocation(p, t, src, dst, twiddles)
	}
}

func stageInvocation(p StageParams, t uint32, src, dst, twiddles []complex64) {
	block := t / p.HalfN
	j := t % p.HalfN
	base := block * p.N
	k := j % p.Ns

	w := twiddles[k*p.TwiddleStride]
	a := src[base+j]
	b := cmul(src[base+j+p.HalfN], w)

	d := base + (j/p.Ns)*p.Ns*2 + k
	dst[d] = complex(real(a)+real(b), imag(a)+imag(b))
	dst[d+p.Ns] = complex(real(a)-real(b), imag(a)-imag(b))
}

// cmul multiplies in float32 with explicit rounding of each product, the
// way the shader's cmul does without fused multiply-add.
func cmul(a, b complex64) complex64 {
	ar, ai := real(a), imag(a)
	br, bi := real(b), imag(b)
	re := float32(ar*br) - float32(ai*bi)
	im := float32(ar*bi) + float32(ai*br)
	return complex(re, im)
}

// NormalizeKernel divides each of the first p.Samples values of src by
// p.Divisor and stores them in dst. src and dst may be the same slice.
func NormalizeKernel(p NormalizeParams, src, dst []complex64) {
	for i := uint32(0); i < p.Samples; i++ {
		c := src[i]
		dst[i] = complex(real(c)/p.Divisor, imag(c)/p.Divisor)
	}
}

// RunInverse replays the full stage schedule of an n-point inverse transform
// on the host, ping-ponging between a and b exactly like the GPU engine.
// It returns the slice holding the unscaled result.
func RunInverse(n, blocks int, a, b []complex64) []complex64 {
	tw := InverseTwiddles(n)
	src, dst := a, b
	for s := 0; s < Log2(n); s++ {
		StageKernel(NewStageParams(n, s, blocks), src, dst, tw)
		src, dst = dst, src
	}
	return src
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fftcompute

import "math"

// InverseTwiddles returns W[i] = exp(+2*pi*i*k/n) for i in [0, n/2).
//
// Angles are evaluated in float64 and rounded once to float32, so every stage
// reads the same correctly rounded roots of unity. Stage s reads
// W[k*TwiddleStride] for k < 2^s.
func InverseTwiddles(n int) []complex64 {
	half := n / 2
	if half < 1 {
		half = 1
	}
	tw := make([]complex64, half)
	for i := range tw {
		angle := 2 * math.Pi * float64(i) / float64(n)
		tw[i] = complex(float32(math.Cos(angle)), float32(math.Sin(angle)))
	}
	return tw
}

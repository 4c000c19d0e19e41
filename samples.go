package ifft

import "github.com/gogpu/ifft/internal/gpu/fftcompute"

// SampleSize is the byte size of one complex sample in GPU buffers:
// little-endian float32 real part followed by float32 imaginary part.
const SampleSize = fftcompute.SampleSize

// ErrSampleLayout is returned when a byte slice does not hold whole samples.
var ErrSampleLayout = fftcompute.ErrSampleLayout

// EncodeSamples appends the buffer layout of src to dst[:0].
func EncodeSamples(dst []byte, src []complex64) []byte {
	return fftcompute.EncodeSamples(dst, src)
}

// DecodeSamples decodes src into dst, growing it as needed.
func DecodeSamples(dst []complex64, src []byte) ([]complex64, error) {
	return fftcompute.DecodeSamples(dst, src)
}

// ReferenceInverse computes the normalized inverse DFT of every n-point
// block of src on the CPU. It is the oracle the GPU output is checked against.
func ReferenceInverse(src []complex64, n int) ([]complex64, error) {
	return fftcompute.ReferenceInverse(src, n)
}

// MaxAbsError returns the largest element-wise distance between a and b.
func MaxAbsError(a, b []complex64) float64 {
	return fftcompute.MaxAbsError(a, b)
}

// Package gpu implements the batched inverse FFT on a gogpu/wgpu HAL device.
//
// The transform is split into compute passes recorded into a caller-owned
// command encoder:
//
//	source (A) --stage 0--> B --stage 1--> A ... --stage log2(N)-1--> result
//	result --normalize--> partner buffer (or in place)
//	output --copy--> staging --map/poll--> host
//
// Key components:
//
//   - ComplexBuffer: storage buffer of interleaved float32 (re, im) samples
//   - StageDispatcher: radix-2 Stockham butterfly passes over a ping-pong pair
//   - InverseEngine: all log2(N) stages, reports the buffer holding the result
//   - NormalizeEngine: one pass dividing by N
//   - Submission: completion token with a single blocking Wait
//   - StagingBuffer and Transfer: map/poll/unmap readback
//
// Engines only record work. Nothing in this package blocks except
// Submission.Wait, Submission.Release and Transfer.Read.
//
// The CPU mirror of every shader lives in the fftcompute subpackage and is
// used by the tests to replay the recorded schedule on the host.
package gpu

// Package ifft runs batched inverse fast Fourier transforms on the GPU.
//
// # Overview
//
// A batch is a contiguous sequence of complex64 samples split into blocks
// of N points (N a power of two, 512 by default). Each block is transformed
// independently with the unnormalized inverse DFT
//
//	x[t] = sum_k X[k] * exp(+2*pi*i*k*t/N)
//
// followed by a separate normalize pass that divides every sample by N.
//
// # Quick Start
//
//	dev, err := ifft.OpenDevice(ifft.DeviceOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
//	p, err := ifft.NewPipeline(dev, ifft.DefaultConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer p.Close()
//
//	out, err := p.Run(nil, spectrum)
//
// # Architecture
//
// The work is split across two engines sharing a ping-pong pair of storage
// buffers (A holds the input, B is scratch):
//   - InverseEngine records log2(N) radix-2 stage passes. Stage s reads A
//     when s is even and B when s is odd; the result lands in ResultRole.
//   - NormalizeEngine records one pass scaling the result by 1/N, either
//     into the partner buffer or in place.
//
// Encoding never blocks. Work becomes visible on the host only through the
// synchronization sequence submit -> Wait -> map -> read -> unmap, which
// Pipeline runs for you and Transfer exposes for callers driving their own
// command encoders.
//
// # Logging
//
// The package is silent by default. SetLogger enables structured logging
// through log/slog for the whole module.
package ifft

// Command ifftbench times the GPU inverse FFT pipeline on a batch of
// N-point blocks and verifies the output against a CPU reference.
//
// Usage:
//
//	ifftbench [-n 512] [-blocks 2500] [-iters 1] [-input const|random] [-verify]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ifft"
)

var iterationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ifftbench_iteration_seconds",
	Help:    "Wall time of one upload, encode, submit and readback iteration",
	Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
})

// errVerification is returned when the GPU output differs from the reference.
var errVerification = errors.New("verification failed")

type options struct {
	n           int
	blocks      int
	iters       int
	input       string
	seed        uint64
	verify      bool
	tolerance   float64
	inPlace     bool
	precompile  bool
	discrete    bool
	otel        bool
	metricsAddr string
	verbose     bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("ifftbench", flag.ContinueOnError)
	fs.IntVar(&o.n, "n", ifft.DefaultLength, "Transform length (power of two)")
	fs.IntVar(&o.blocks, "blocks", ifft.DefaultBlocks, "Number of blocks per batch")
	fs.IntVar(&o.iters, "iters", 1, "Number of timed iterations")
	fs.StringVar(&o.input, "input", "const", "Input data: const or random")
	fs.Uint64Var(&o.seed, "seed", 1, "Seed for random input")
	fs.BoolVar(&o.verify, "verify", true, "Verify the last iteration against the CPU reference")
	fs.Float64Var(&o.tolerance, "tolerance", 1e-5, "Maximum absolute error accepted by -verify")
	fs.BoolVar(&o.inPlace, "inplace", false, "Normalize in place")
	fs.BoolVar(&o.precompile, "precompile", false, "Compile shaders to SPIR-V with naga on the host")
	fs.BoolVar(&o.discrete, "discrete", true, "Prefer a discrete GPU")
	fs.BoolVar(&o.otel, "otel", false, "Enable OpenTelemetry tracing (stdout)")
	fs.StringVar(&o.metricsAddr, "metrics", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch {
	case o.iters < 1:
		return o, fmt.Errorf("-iters must be at least 1, got %d", o.iters)
	case o.input != "const" && o.input != "random":
		return o, fmt.Errorf("-input must be const or random, got %q", o.input)
	case o.tolerance <= 0:
		return o, fmt.Errorf("-tolerance must be positive, got %g", o.tolerance)
	}
	return o, nil
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("Invalid flags")
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opts.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := run(context.Background(), opts); err != nil {
		if errors.Is(err, errVerification) {
			log.Error().Err(err).Msg("GPU result does not match the reference")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Benchmark failed")
	}
}

func run(ctx context.Context, opts options) error {
	if opts.otel {
		shutdown, err := initTracer()
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr)
		defer func() { _ = srv.Close() }()
	}

	ifft.SetLogger(libraryLogger(&log.Logger, opts.verbose))
	defer ifft.SetLogger(nil)

	dev, err := ifft.OpenDevice(ifft.DeviceOptions{
		PreferDiscrete:  opts.discrete,
		PrecompileSPIRV: opts.precompile,
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	cfg := ifft.DefaultConfig()
	cfg.Length = opts.n
	cfg.Blocks = opts.blocks
	cfg.NormalizeInPlace = opts.inPlace
	p, err := ifft.NewPipeline(dev, cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	input, err := generateInput(opts.input, cfg.Samples(), opts.seed)
	if err != nil {
		return err
	}

	out, elapsed, err := benchmark(ctx, p, input, opts.iters)
	if err != nil {
		return err
	}

	printer := message.NewPrinter(language.English)
	perIter := elapsed / time.Duration(opts.iters)
	log.Info().
		Str("adapter", dev.AdapterName()).
		Str("samples", printer.Sprintf("%d", cfg.Samples())).
		Int("iters", opts.iters).
		Dur("total", elapsed).
		Dur("per_iter", perIter).
		Str("throughput", printer.Sprintf("%.0f samples/s", float64(cfg.Samples())/perIter.Seconds())).
		Msg("Benchmark complete")

	if !opts.verify {
		return nil
	}
	maxErr, err := verify(out, input, cfg.Length, opts.tolerance)
	log.Info().Float64("max_abs_error", maxErr).Float64("tolerance", opts.tolerance).Msg("Verification")
	return err
}

// benchmark runs iters full iterations and returns the last output and the
// total wall time.
func benchmark(ctx context.Context, p *ifft.Pipeline, input []complex64, iters int) ([]complex64, time.Duration, error) {
	var out []complex64
	start := time.Now()
	for i := range iters {
		iterCtx, span := tracer.Start(ctx, "iteration", trace.WithAttributes(attribute.Int("iter", i)))
		iterStart := time.Now()

		var err error
		out, err = runIteration(iterCtx, p, out, input)
		iterationSeconds.Observe(time.Since(iterStart).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return out, time.Since(start), fmt.Errorf("iteration %d: %w", i, err)
		}
		span.End()

		log.Debug().Int("iter", i).Dur("elapsed", time.Since(iterStart)).Msg("Iteration done")
	}
	return out, time.Since(start), nil
}

func runIteration(ctx context.Context, p *ifft.Pipeline, dst, src []complex64) ([]complex64, error) {
	_, span := tracer.Start(ctx, "upload")
	err := p.Upload(src)
	span.End()
	if err != nil {
		return dst, err
	}

	_, span = tracer.Start(ctx, "encode")
	sub, err := p.Encode()
	span.End()
	if err != nil {
		return dst, err
	}
	defer sub.Release()

	_, span = tracer.Start(ctx, "readback")
	defer span.End()
	return p.Readback(dst, sub)
}

// verify compares out with the CPU reference of input.
func verify(out, input []complex64, n int, tolerance float64) (float64, error) {
	want, err := ifft.ReferenceInverse(input, n)
	if err != nil {
		return 0, err
	}
	maxErr := ifft.MaxAbsError(out, want)
	if maxErr > tolerance {
		return maxErr, fmt.Errorf("%w: max abs error %g exceeds %g", errVerification, maxErr, tolerance)
	}
	return maxErr, nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("Serving metrics")
	return srv
}

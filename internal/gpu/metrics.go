package gpu

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass labels for dispatchesTotal.
const (
	passStage     = "stage"
	passNormalize = "normalize"
	passCopy      = "copy"
)

var (
	dispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ifft_dispatches_total",
		Help: "Total number of compute passes and copies recorded, by pass",
	}, []string{"pass"})

	submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ifft_submissions_total",
		Help: "Total number of command buffers submitted",
	})

	fenceWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ifft_fence_wait_seconds",
		Help:    "Time from submission until the fence signalled",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	})

	fenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ifft_fence_failures_total",
		Help: "Total number of failed fence waits, by reason",
	}, []string{"reason"})

	readbackBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ifft_readback_bytes_total",
		Help: "Total number of bytes read back from staging buffers",
	})

	stagingBuffersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ifft_staging_buffers_live",
		Help: "Current number of staging buffers that have not been destroyed",
	})
)

package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xaionaro-go/screensnap/pkg/capturetarget"
	"github.com/xaionaro-go/screensnap/pkg/snapshot"
	"github.com/xaionaro-go/screensnap/pkg/snapshotencoder"
)

const metricsNamespace = "screensnap"

const (
	resultSuccess    = "success"
	resultResolution = "resolution_error"
	resultTimeout    = "timeout"
	resultCanceled   = "canceled"
	resultEncoding   = "encoding_error"
	resultCapture    = "capture_error"
)

// Metrics collects the metrics of a single run; they are written to
// a file for the textfile collector of the node exporter.
type Metrics struct {
	Registry *prometheus.Registry

	Captures    *prometheus.CounterVec
	Duration    prometheus.Histogram
	OutputBytes prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "captures_total",
			Help:      "The amount of capture attempts by the result.",
		}, []string{"result"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "capture_duration_seconds",
			Help:      "The time from the target resolution to the written file.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		OutputBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "output_bytes",
			Help:      "The size of the last written picture.",
		}),
	}
	m.Registry.MustRegister(m.Captures, m.Duration, m.OutputBytes)
	return m
}

func captureResult(err error) string {
	switch {
	case err == nil:
		return resultSuccess
	case errors.Is(err, capturetarget.ErrTargetResolution{}):
		return resultResolution
	case errors.As(err, &snapshot.ErrCaptureTimeout{}):
		return resultTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resultCanceled
	case errors.As(err, &snapshotencoder.ErrEncoding{}):
		return resultEncoding
	default:
		return resultCapture
	}
}

// Observe accounts a capture attempt; a nil Metrics ignores it.
func (m *Metrics) Observe(
	res snapshotencoder.SaveResult,
	err error,
	duration time.Duration,
) {
	if m == nil {
		return
	}
	m.Captures.WithLabelValues(captureResult(err)).Inc()
	if err != nil {
		return
	}
	m.Duration.Observe(duration.Seconds())
	m.OutputBytes.Set(float64(res.Bytes))
}

func (m *Metrics) WriteToTextfile(ctx context.Context, path string) error {
	logger.Debugf(ctx, "WriteToTextfile(ctx, '%s')", path)
	defer logger.Debugf(ctx, "/WriteToTextfile(ctx, '%s')", path)
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("unable to write the metrics to '%s': %w", path, err)
	}
	return nil
}

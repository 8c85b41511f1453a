package capture

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/RyanBlaney/sonido-pitch/tuning"
)

// meterName is the instrumentation scope of all pipeline metrics.
const meterName = "github.com/RyanBlaney/sonido-pitch"

// Metrics holds the OpenTelemetry instruments of the capture pipeline. The
// instruments are safe for concurrent use.
type Metrics struct {
	// FramesProcessed counts frames handed to the estimator.
	FramesProcessed metric.Int64Counter

	// FramesRejected counts frames discarded by the gate. Attribute:
	//   attribute.String("reason", "unvoiced"|"quiet")
	FramesRejected metric.Int64Counter

	// NotesClassified counts admitted frames. Attribute:
	//   attribute.Bool("matched", ...)
	NotesClassified metric.Int64Counter

	// EstimateDuration tracks per-frame estimator latency.
	EstimateDuration metric.Float64Histogram

	// CaptureErrors counts runs terminated by a read failure.
	CaptureErrors metric.Int64Counter

	// InputOverflows counts input chunks lost by the device backend.
	InputOverflows metric.Int64Counter

	// RunsActive is the number of running capture goroutines (0 or 1).
	RunsActive metric.Int64UpDownCounter
}

// estimateBuckets are histogram boundaries in seconds, from a
// sub-millisecond FFT to a slow time-domain estimator on a large frame.
var estimateBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
}

// NewMetrics creates the instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.FramesProcessed, err = m.Int64Counter("sonido.frames.processed",
		metric.WithDescription("Frames passed to the pitch estimator."),
	); err != nil {
		return nil, err
	}
	if met.FramesRejected, err = m.Int64Counter("sonido.frames.rejected",
		metric.WithDescription("Frames discarded by the signal quality gate, by reason."),
	); err != nil {
		return nil, err
	}
	if met.NotesClassified, err = m.Int64Counter("sonido.notes.classified",
		metric.WithDescription("Admitted frames by classification outcome."),
	); err != nil {
		return nil, err
	}
	if met.EstimateDuration, err = m.Float64Histogram("sonido.estimate.duration",
		metric.WithDescription("Latency of one pitch estimate."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(estimateBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CaptureErrors, err = m.Int64Counter("sonido.capture.errors",
		metric.WithDescription("Capture runs ended by a device read failure."),
	); err != nil {
		return nil, err
	}
	if met.InputOverflows, err = m.Int64Counter("sonido.capture.overflows",
		metric.WithDescription("Input chunks dropped by the device backend."),
	); err != nil {
		return nil, err
	}
	if met.RunsActive, err = m.Int64UpDownCounter("sonido.runs.active",
		metric.WithDescription("Number of active capture runs."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a package-level instance bound to
// [otel.GetMeterProvider].
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("capture: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordRejected counts a frame refused by the gate
func (m *Metrics) RecordRejected(ctx context.Context, reason tuning.Rejection) {
	m.FramesRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason.String())),
	)
}

// RecordClassified counts an admitted frame
func (m *Metrics) RecordClassified(ctx context.Context, matched bool) {
	m.NotesClassified.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("matched", matched)),
	)
}

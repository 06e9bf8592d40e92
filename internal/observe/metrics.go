// Package observe provides application-wide observability primitives for
// Vessa: OpenTelemetry metrics, distributed tracing, structured logging, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Vessa metrics.
const meterName = "github.com/pmeredith/vessa"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// DispatchDuration tracks end-to-end command dispatch latency, from
	// classification through adapter execution.
	DispatchDuration metric.Float64Histogram

	// RecognitionDuration tracks one-shot speech recognition latency.
	RecognitionDuration metric.Float64Histogram

	// SpeakDuration tracks speech synthesis + playback latency.
	SpeakDuration metric.Float64Histogram

	// --- Counters ---

	// Commands counts dispatched commands. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("status", ...)
	Commands metric.Int64Counter

	// WakeTriggers counts wake-word activations.
	WakeTriggers metric.Int64Counter

	// LoopStarts counts listening-loop starts. Use with attribute:
	//   attribute.String("loop", "active"|"wake_word")
	LoopStarts metric.Int64Counter

	// LoopStops counts listening-loop terminations. Use with attributes:
	//   attribute.String("loop", ...), attribute.String("reason", ...)
	LoopStops metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveLoops tracks the number of currently running listening loops.
	ActiveLoops metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.DispatchDuration, err = m.Float64Histogram("vessa.dispatch.duration",
		metric.WithDescription("End-to-end command dispatch latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RecognitionDuration, err = m.Float64Histogram("vessa.recognition.duration",
		metric.WithDescription("One-shot speech recognition latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SpeakDuration, err = m.Float64Histogram("vessa.speak.duration",
		metric.WithDescription("Speech synthesis and playback latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Commands, err = m.Int64Counter("vessa.commands",
		metric.WithDescription("Total dispatched commands by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.WakeTriggers, err = m.Int64Counter("vessa.wake.triggers",
		metric.WithDescription("Total wake-word activations."),
	); err != nil {
		return nil, err
	}
	if met.LoopStarts, err = m.Int64Counter("vessa.loop.starts",
		metric.WithDescription("Total listening-loop starts by loop."),
	); err != nil {
		return nil, err
	}
	if met.LoopStops, err = m.Int64Counter("vessa.loop.stops",
		metric.WithDescription("Total listening-loop terminations by loop and reason."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("vessa.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveLoops, err = m.Int64UpDownCounter("vessa.active_loops",
		metric.WithDescription("Number of currently running listening loops."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("vessa.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand is a convenience method that records a command counter
// increment with the standard attribute set.
func (m *Metrics) RecordCommand(ctx context.Context, kind, status string) {
	m.Commands.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordLoopStart records a loop start and bumps the active-loops gauge.
func (m *Metrics) RecordLoopStart(ctx context.Context, loop string) {
	m.LoopStarts.Add(ctx, 1, metric.WithAttributes(attribute.String("loop", loop)))
	m.ActiveLoops.Add(ctx, 1)
}

// RecordLoopStop records a loop termination and drops the active-loops gauge.
func (m *Metrics) RecordLoopStop(ctx context.Context, loop, reason string) {
	m.LoopStops.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("loop", loop),
			attribute.String("reason", reason),
		),
	)
	m.ActiveLoops.Add(ctx, -1)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

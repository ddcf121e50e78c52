// Package observe records pipeline metrics through the OpenTelemetry metrics
// API and exposes them for Prometheus scraping.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/GriffinCanCode/pushtalk"

// Metrics holds the instruments used by the recording pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	RecordingsStarted  metric.Int64Counter
	RecordingActive    metric.Int64UpDownCounter
	Segments           metric.Int64Counter
	TranscribeDuration metric.Float64Histogram
	DispatchFailures   metric.Int64Counter
	StaleResults       metric.Int64Counter
	WakeChecks         metric.Int64Counter
	BreakerTransitions metric.Int64Counter
	HTTPRequests       metric.Int64Counter
}

// latency buckets in seconds, sized for remote speech round trips
var latencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30}

// NewMetrics creates instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.RecordingsStarted, err = m.Int64Counter("pushtalk.recordings.started",
		metric.WithDescription("Recording sessions started, by trigger."),
	); err != nil {
		return nil, err
	}
	if met.RecordingActive, err = m.Int64UpDownCounter("pushtalk.recordings.active",
		metric.WithDescription("1 while a recording session is live."),
	); err != nil {
		return nil, err
	}
	if met.Segments, err = m.Int64Counter("pushtalk.segments",
		metric.WithDescription("Mid-session segment flushes, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("pushtalk.transcribe.duration",
		metric.WithDescription("Latency of a transcription dispatch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.DispatchFailures, err = m.Int64Counter("pushtalk.dispatch.failures",
		metric.WithDescription("Failed dispatches, by stage."),
	); err != nil {
		return nil, err
	}
	if met.StaleResults, err = m.Int64Counter("pushtalk.results.stale",
		metric.WithDescription("Results dropped because a newer session had started."),
	); err != nil {
		return nil, err
	}
	if met.WakeChecks, err = m.Int64Counter("pushtalk.wakeword.checks",
		metric.WithDescription("Wake phrase checks, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.BreakerTransitions, err = m.Int64Counter("pushtalk.provider.breaker.transitions",
		metric.WithDescription("Transcription provider circuit breaker state changes, by provider and new state."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequests, err = m.Int64Counter("pushtalk.http.requests",
		metric.WithDescription("Control API requests, by route and status."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordStart counts a new recording session.
func (m *Metrics) RecordStart(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.RecordingsStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("trigger", trigger)))
	m.RecordingActive.Add(ctx, 1)
}

// RecordEnd marks the live session finished.
func (m *Metrics) RecordEnd(ctx context.Context) {
	if m == nil {
		return
	}
	m.RecordingActive.Add(ctx, -1)
}

// RecordSegment counts a segment flush with outcome "dispatched" or "discarded".
func (m *Metrics) RecordSegment(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Segments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTranscribe observes one dispatch. kind is "segment" or "final".
func (m *Metrics) RecordTranscribe(ctx context.Context, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TranscribeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordFailure counts a failed dispatch stage (encode, transcribe, type, command).
func (m *Metrics) RecordFailure(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.DispatchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordStale counts a discarded stale result.
func (m *Metrics) RecordStale(ctx context.Context) {
	if m == nil {
		return
	}
	m.StaleResults.Add(ctx, 1)
}

// RecordWakeCheck counts a wake phrase check with outcome "wake", "miss", or "error".
func (m *Metrics) RecordWakeCheck(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.WakeChecks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordBreaker counts a provider breaker moving to state.
func (m *Metrics) RecordBreaker(ctx context.Context, provider, state string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("state", state),
	))
}

// RecordHTTP counts a control API request.
func (m *Metrics) RecordHTTP(ctx context.Context, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// Package telemetry wraps a decision run (audience resolution followed
// by bucketing) with OpenTelemetry spans and metrics (§2.5 of
// SPEC_FULL.md). It records admit/reject and variation outcomes, never
// user attribute values, since those may be sensitive.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DecisionContext correlates a single evaluation's log lines and spans,
// mirroring the teacher's TraceInfo.RunID pattern (core/types.go).
type DecisionContext struct {
	RunID string
}

// NewDecisionContext stamps a fresh RunID for one decision.
func NewDecisionContext() DecisionContext {
	return DecisionContext{RunID: uuid.New().String()}
}

// Recorder wraps the audience/bucketing pipeline with tracing and
// metrics instruments, grounded in the teacher's otel/tracing.go
// (TracingHandler) and otel/metrics.go (MetricsHandler) shapes.
type Recorder struct {
	tracer trace.Tracer

	decisions      metric.Int64Counter
	audienceAdmits metric.Int64Counter
	bucketDuration metric.Float64Histogram
}

// NewRecorder builds a Recorder from a tracer and meter. Either may be
// a no-op implementation (trace.NewNoopTracerProvider, noop metric
// provider) when telemetry export is not configured.
func NewRecorder(tracer trace.Tracer, meter metric.Meter) (*Recorder, error) {
	decisions, err := meter.Int64Counter("decisionengine.decisions",
		metric.WithDescription("Number of audience+bucketing decisions evaluated"),
	)
	if err != nil {
		return nil, err
	}
	admits, err := meter.Int64Counter("decisionengine.audience.admits",
		metric.WithDescription("Number of audience evaluations that admitted the user"),
	)
	if err != nil {
		return nil, err
	}
	bucketDur, err := meter.Float64Histogram("decisionengine.bucket.duration",
		metric.WithDescription("Duration of a bucketing pass in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		tracer:         tracer,
		decisions:      decisions,
		audienceAdmits: admits,
		bucketDuration: bucketDur,
	}, nil
}

// StartDecision opens a span for one decision run, tagged with its
// RunID and experiment key.
func (r *Recorder) StartDecision(ctx context.Context, dc DecisionContext, experimentKey string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "decision:"+experimentKey,
		trace.WithAttributes(
			attribute.String("decisionengine.run_id", dc.RunID),
			attribute.String("decisionengine.experiment_key", experimentKey),
		),
	)
	r.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("experiment_key", experimentKey)))
	return ctx, span
}

// RecordAudienceResult annotates the active span with the audience
// admit/reject outcome and records the admits counter.
func (r *Recorder) RecordAudienceResult(ctx context.Context, span trace.Span, experimentKey string, admitted bool) {
	span.SetAttributes(attribute.Bool("decisionengine.audience.admitted", admitted))
	if admitted {
		r.audienceAdmits.Add(ctx, 1, metric.WithAttributes(attribute.String("experiment_key", experimentKey)))
	}
}

// RecordBucketResult annotates the active span with the bucket value
// and selected variation (or its absence), and records the duration
// histogram.
func (r *Recorder) RecordBucketResult(ctx context.Context, span trace.Span, experimentKey string, bucketValue int, variationKey string, seconds float64) {
	span.SetAttributes(
		attribute.Int("decisionengine.bucket.value", bucketValue),
		attribute.String("decisionengine.bucket.variation", variationKey),
	)
	r.bucketDuration.Record(ctx, seconds, metric.WithAttributes(attribute.String("experiment_key", experimentKey)))
}

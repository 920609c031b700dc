// Package observability wires OpenTelemetry tracing and metrics into the
// report pipeline. Both providers default to no-ops so the instrumentation
// is free unless the operator injects real providers.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "reportd"

// Observer bundles the tracer and metric instruments used by the api and
// worker processes.
type Observer struct {
	tracer trace.Tracer

	jobsStarted      metric.Int64Counter
	jobsCompleted    metric.Int64Counter
	jobsFailed       metric.Int64Counter
	stageTransitions metric.Int64Counter
	jobDuration      metric.Float64Histogram
}

// New builds an Observer from the given providers. Nil providers fall back
// to no-op implementations.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Observer {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter(scopeName)

	o := &Observer{tracer: tp.Tracer(scopeName)}
	o.jobsStarted, _ = meter.Int64Counter("reportd.jobs.started",
		metric.WithDescription("Report jobs accepted by the api"),
		metric.WithUnit("{job}"))
	o.jobsCompleted, _ = meter.Int64Counter("reportd.jobs.completed",
		metric.WithDescription("Report jobs finished successfully"),
		metric.WithUnit("{job}"))
	o.jobsFailed, _ = meter.Int64Counter("reportd.jobs.failed",
		metric.WithDescription("Report jobs finished in failure"),
		metric.WithUnit("{job}"))
	o.stageTransitions, _ = meter.Int64Counter("reportd.jobs.stage_transitions",
		metric.WithDescription("Stage transitions applied by the worker"),
		metric.WithUnit("{transition}"))
	o.jobDuration, _ = meter.Float64Histogram("reportd.jobs.duration",
		metric.WithDescription("Wall time from claim to terminal stage"),
		metric.WithUnit("ms"))
	return o
}

// NewNoop returns an Observer that records nothing.
func NewNoop() *Observer {
	return New(nil, nil)
}

// FromGlobal builds an Observer on the globally registered OpenTelemetry
// providers, so an operator-installed SDK (otel.SetTracerProvider /
// otel.SetMeterProvider) is picked up without code changes. Without an SDK
// the globals are no-ops and this is equivalent to NewNoop.
func FromGlobal() *Observer {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

// StartSpan opens a span with the given name and job id attribute.
func (o *Observer) StartSpan(ctx context.Context, name, jobID string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("job.id", jobID),
	))
}

// EndSpan records err (if any) and ends the span.
func (o *Observer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// JobStarted counts one accepted job.
func (o *Observer) JobStarted(ctx context.Context) {
	o.jobsStarted.Add(ctx, 1)
}

// StageTransition counts one stage transition.
func (o *Observer) StageTransition(ctx context.Context, stage string) {
	o.stageTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("job.stage", stage)))
}

// JobFinished records the terminal outcome and duration of one job.
func (o *Observer) JobFinished(ctx context.Context, failed bool, elapsed time.Duration) {
	if failed {
		o.jobsFailed.Add(ctx, 1)
	} else {
		o.jobsCompleted.Add(ctx, 1)
	}
	o.jobDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(
		attribute.Bool("job.failed", failed),
	))
}

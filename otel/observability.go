// Package otel reports statesync priming passes and handler calls through OpenTelemetry.
//
//	obs, err := otel.New(otel.WithTracerProvider(tp), otel.WithMeterProvider(mp))
//	if err != nil {
//	    return err
//	}
//	statesync.SetObservability(obs)
package otel

import (
	"context"
	"time"

	statesync "github.com/jilio/statesync"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jilio/statesync"
)

type attrsKey struct{}

// Observability implements statesync.Observability using OpenTelemetry
type Observability struct {
	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	syncCounter     metric.Int64Counter
	callCounter     metric.Int64Counter
	syncErrors      metric.Int64Counter
	handlerDuration metric.Float64Histogram
	handlerErrors   metric.Int64Counter
	stopCounter     metric.Int64Counter
}

// Option configures the Observability
type Option func(*Observability)

// WithTracerProvider sets a custom tracer provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *Observability) {
		o.tracer = provider.Tracer(instrumentationName)
	}
}

// WithMeterProvider sets a custom meter provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *Observability) {
		o.meter = provider.Meter(instrumentationName)
	}
}

// New creates a new OpenTelemetry observability implementation
func New(opts ...Option) (*Observability, error) {
	obs := &Observability{
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}

	for _, opt := range opts {
		opt(obs)
	}

	var err error

	obs.syncCounter, err = obs.meter.Int64Counter(
		"statesync.sync.count",
		metric.WithDescription("Number of priming passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, err
	}

	obs.callCounter, err = obs.meter.Int64Counter(
		"statesync.sync.calls",
		metric.WithDescription("Number of handler calls made by priming passes"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	obs.syncErrors, err = obs.meter.Int64Counter(
		"statesync.sync.errors",
		metric.WithDescription("Number of failed priming passes"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	obs.handlerDuration, err = obs.meter.Float64Histogram(
		"statesync.handler.duration",
		metric.WithDescription("Primed handler execution duration"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	obs.handlerErrors, err = obs.meter.Int64Counter(
		"statesync.handler.errors",
		metric.WithDescription("Number of primed handlers that could not be resolved"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	obs.stopCounter, err = obs.meter.Int64Counter(
		"statesync.syncing.stops",
		metric.WithDescription("Number of syncings torn down"),
		metric.WithUnit("{syncing}"),
	)
	if err != nil {
		return nil, err
	}

	return obs, nil
}

func withAttrs(ctx context.Context, attrs []attribute.KeyValue) context.Context {
	return context.WithValue(ctx, attrsKey{}, attrs)
}

func attrsFrom(ctx context.Context) []attribute.KeyValue {
	attrs, _ := ctx.Value(attrsKey{}).([]attribute.KeyValue)
	return attrs
}

func triggerName(trigger string) string {
	if trigger == "" {
		return "immediate"
	}
	return trigger
}

// OnSyncStart is called before a priming pass
func (o *Observability) OnSyncStart(ctx context.Context, kind statesync.EntityKind, trigger string) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String("entity.kind", kind.String()),
		attribute.String("sync.trigger", triggerName(trigger)),
	}

	ctx, _ = o.tracer.Start(ctx, "statesync.sync: "+kind.String(),
		trace.WithAttributes(attrs...),
	)
	o.syncCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	return withAttrs(ctx, attrs)
}

// OnSyncComplete is called after a priming pass
func (o *Observability) OnSyncComplete(ctx context.Context, calls int, err error) {
	span := trace.SpanFromContext(ctx)
	attrs := attrsFrom(ctx)

	o.callCounter.Add(ctx, int64(calls), metric.WithAttributes(attrs...))
	span.SetAttributes(attribute.Int("sync.calls", calls))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		o.syncErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// OnHandlerStart is called before a primed handler runs
func (o *Observability) OnHandlerStart(ctx context.Context, event, handler string) context.Context {
	attrs := []attribute.KeyValue{
		attribute.String("event.name", event),
		attribute.String("handler.name", handler),
	}

	ctx, _ = o.tracer.Start(ctx, "statesync.handler: "+handler,
		trace.WithAttributes(attrs...),
	)

	return withAttrs(ctx, attrs)
}

// OnHandlerComplete is called after a primed handler returns
func (o *Observability) OnHandlerComplete(ctx context.Context, duration time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	attrs := attrsFrom(ctx)

	durationMs := float64(duration.Microseconds()) / 1000
	o.handlerDuration.Record(ctx, durationMs, metric.WithAttributes(attrs...))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		o.handlerErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// OnSyncingStop is called when a syncing is torn down
func (o *Observability) OnSyncingStop(ctx context.Context, trigger string) {
	o.stopCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("sync.trigger", triggerName(trigger)),
		),
	)
}

// Ensure Observability implements statesync.Observability
var _ statesync.Observability = (*Observability)(nil)

package router

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vikashloomba/mcp-query-router/pkg/router"

type instruments struct {
	tracer    trace.Tracer
	queries   metric.Int64Counter
	toolCalls metric.Int64Counter
	failures  metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*instruments, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName, metric.WithInstrumentationVersion("1.0.0"))

	inst := &instruments{
		tracer: tp.Tracer(instrumentationName, trace.WithInstrumentationVersion("1.0.0")),
	}
	var err error
	if inst.queries, err = meter.Int64Counter("router.queries",
		metric.WithDescription("Queries processed, by outcome"),
		metric.WithUnit("{query}"),
	); err != nil {
		return nil, err
	}
	if inst.toolCalls, err = meter.Int64Counter("router.tool_calls",
		metric.WithDescription("Tool invocations issued to backend servers"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if inst.failures, err = meter.Int64Counter("router.failures",
		metric.WithDescription("Queries that ended in a failure, by stage"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}
	if inst.duration, err = meter.Float64Histogram("router.query.duration",
		metric.WithDescription("End-to-end query latency"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return inst, nil
}

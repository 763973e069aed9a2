// Package observer wires OpenTelemetry tracing and metrics for the extraction
// pipeline. Export is configured through the standard OTEL_* environment
// variables; when telemetry is disabled the instruments are no-ops.
package observer

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/joseph-ayodele/pdftoxl"

var (
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMModel    = attribute.Key("llm.model")
	AttrFileName    = attribute.Key("file.name")
	AttrTemplateID  = attribute.Key("template.id")
	AttrStatus      = attribute.Key("status")
)

// Instruments holds the tracer and metric instruments shared by the pipeline.
type Instruments struct {
	Tracer trace.Tracer

	FilesProcessed metric.Int64Counter
	FileDuration   metric.Float64Histogram
	LLMRequests    metric.Int64Counter
	LLMDuration    metric.Float64Histogram
}

// Init sets up trace and metric providers with OTLP HTTP exporters and installs
// them globally. The returned shutdown function flushes both.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	inst, err := NewInstruments(tp, mp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	return inst, shutdown, nil
}

// Nop returns instruments that record nothing.
func Nop() *Instruments {
	inst, err := NewInstruments(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		// noop providers never fail
		panic(err)
	}
	return inst
}

func NewInstruments(tp trace.TracerProvider, mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(scopeName)

	filesProcessed, err := meter.Int64Counter("pdftoxl.files.processed",
		metric.WithDescription("Files run through the extraction pipeline"),
		metric.WithUnit("{file}"))
	if err != nil {
		return nil, err
	}
	fileDuration, err := meter.Float64Histogram("pdftoxl.file.duration",
		metric.WithDescription("Per-file pipeline duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	llmRequests, err := meter.Int64Counter("llm.requests",
		metric.WithDescription("LLM request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}
	llmDuration, err := meter.Float64Histogram("llm.duration",
		metric.WithDescription("LLM call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:         tp.Tracer(scopeName),
		FilesProcessed: filesProcessed,
		FileDuration:   fileDuration,
		LLMRequests:    llmRequests,
		LLMDuration:    llmDuration,
	}, nil
}

// RecordFile counts one processed file with its outcome.
func (i *Instruments) RecordFile(ctx context.Context, templateID, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(AttrTemplateID.String(templateID), AttrStatus.String(status))
	i.FilesProcessed.Add(ctx, 1, attrs)
	i.FileDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

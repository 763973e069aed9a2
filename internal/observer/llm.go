package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/pdftoxl/internal/llm"
)

// ObservedClient wraps an llm.Client with a span and request metrics.
type ObservedClient struct {
	inner llm.Client
	inst  *Instruments
}

func WrapLLM(inner llm.Client, inst *Instruments) *ObservedClient {
	if inst == nil {
		inst = Nop()
	}
	return &ObservedClient{inner: inner, inst: inst}
}

func (o *ObservedClient) Name() string  { return o.inner.Name() }
func (o *ObservedClient) Model() string { return o.inner.Model() }

func (o *ObservedClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMModel.String(o.inner.Model()),
	))
	defer span.End()
	start := time.Now()

	out, err := o.inner.Generate(ctx, prompt)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	attrs := metric.WithAttributes(
		AttrLLMProvider.String(o.inner.Name()),
		AttrLLMModel.String(o.inner.Model()),
		AttrStatus.String(status),
	)
	o.inst.LLMRequests.Add(ctx, 1, attrs)
	o.inst.LLMDuration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	return out, err
}

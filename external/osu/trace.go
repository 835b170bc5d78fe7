package osu

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var osuTracer = otel.Tracer("match-hub/external/osu")

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return osuTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "productapi"

// StartProductSpan starts a span named "product.<op>". productID may be empty.
func StartProductSpan(ctx context.Context, op, productID string) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithSpanKind(trace.SpanKindInternal)}
	if productID != "" {
		opts = append(opts, trace.WithAttributes(attribute.String("product.id", productID)))
	}
	return otel.Tracer(tracerName).Start(ctx, "product."+op, opts...)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

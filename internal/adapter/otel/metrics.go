package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "productapi"

// Operation outcomes recorded on product metrics.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Metrics holds the product API metric instruments.
type Metrics struct {
	Operations    metric.Int64Counter
	Duration      metric.Float64Histogram
	EventsPublish metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsFrom(otel.GetMeterProvider())
}

// NewMetricsFrom creates all metric instruments on mp.
func NewMetricsFrom(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Operations, err = meter.Int64Counter("productapi.product.operations",
		metric.WithDescription("Product service operations by name and outcome"))
	if err != nil {
		return nil, err
	}

	m.Duration, err = meter.Float64Histogram("productapi.product.operation.duration_seconds",
		metric.WithDescription("Product service operation latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.EventsPublish, err = meter.Int64Counter("productapi.product.events",
		metric.WithDescription("Product events handed to the publisher by type and outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordOperation counts one operation and its latency. Safe on a nil receiver.
func (m *Metrics) RecordOperation(ctx context.Context, op, outcome string, started time.Time) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	)
	m.Operations.Add(ctx, 1, attrs)
	m.Duration.Record(ctx, time.Since(started).Seconds(), attrs)
}

// RecordEvent counts one publish attempt. Safe on a nil receiver.
func (m *Metrics) RecordEvent(ctx context.Context, eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublish.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("outcome", outcome),
	))
}

package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderMetrics records order lifecycle counters. A nil *OrderMetrics is a no-op.
type OrderMetrics struct {
	created        metric.Int64Counter
	grandTotal     metric.Int64Histogram
	stockConflicts metric.Int64Counter
	statusChanges  metric.Int64Counter
}

// NewOrderMetrics registers the order instruments on meter, or on the global
// meter provider when meter is nil.
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName + "/orders")
	}
	var (
		m    OrderMetrics
		err  error
		errs []error
	)
	m.created, err = meter.Int64Counter("orders.created",
		metric.WithDescription("Orders committed"), metric.WithUnit("{order}"))
	errs = append(errs, err)
	m.grandTotal, err = meter.Int64Histogram("orders.grand_total",
		metric.WithDescription("Grand total of committed orders in minor units"), metric.WithUnit("{fils}"))
	errs = append(errs, err)
	m.stockConflicts, err = meter.Int64Counter("orders.stock_conflicts",
		metric.WithDescription("Order attempts rejected for insufficient stock"))
	errs = append(errs, err)
	m.statusChanges, err = meter.Int64Counter("orders.status_changes",
		metric.WithDescription("Order status transitions"))
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *OrderMetrics) OrderCreated(ctx context.Context, paymentMethod, fulfillment string, grandTotal int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("payment_method", paymentMethod),
		attribute.String("fulfillment", fulfillment),
	)
	m.created.Add(ctx, 1, attrs)
	m.grandTotal.Record(ctx, grandTotal, attrs)
}

func (m *OrderMetrics) StockConflict(ctx context.Context, productID string) {
	if m == nil {
		return
	}
	m.stockConflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("product_id", productID)))
}

func (m *OrderMetrics) StatusChanged(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

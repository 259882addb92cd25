package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CommerceMetrics holds the counters for webhook fulfillment and entitlement
// checks. A nil *CommerceMetrics records nothing.
type CommerceMetrics struct {
	webhookDeliveries metric.Int64Counter
	ordersReconciled  metric.Int64Counter
	lineItemsSkipped  metric.Int64Counter
	downloads         metric.Int64Counter
	freeClaims        metric.Int64Counter
}

func NewCommerceMetrics(meter metric.Meter) (*CommerceMetrics, error) {
	m := &CommerceMetrics{}
	var err error

	if m.webhookDeliveries, err = meter.Int64Counter("commerce.webhook.deliveries",
		metric.WithDescription("Payment notifications received, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.ordersReconciled, err = meter.Int64Counter("commerce.orders.reconciled",
		metric.WithDescription("Completed transactions reconciled into orders"),
	); err != nil {
		return nil, err
	}
	if m.lineItemsSkipped, err = meter.Int64Counter("commerce.line_items.skipped",
		metric.WithDescription("Line items whose price id matched no product"),
	); err != nil {
		return nil, err
	}
	if m.downloads, err = meter.Int64Counter("commerce.downloads",
		metric.WithDescription("Download credential requests, by outcome"),
	); err != nil {
		return nil, err
	}
	if m.freeClaims, err = meter.Int64Counter("commerce.free_claims",
		metric.WithDescription("Free product claims, by outcome"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *CommerceMetrics) WebhookDelivery(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *CommerceMetrics) OrderReconciled(ctx context.Context, created bool) {
	if m == nil {
		return
	}
	m.ordersReconciled.Add(ctx, 1, metric.WithAttributes(attribute.Bool("created", created)))
}

func (m *CommerceMetrics) LineItemsSkipped(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.lineItemsSkipped.Add(ctx, int64(n))
}

func (m *CommerceMetrics) Download(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.downloads.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *CommerceMetrics) FreeClaim(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.freeClaims.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestCommerceMetrics(t *testing.T) {
	ctx := context.Background()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))

	m, err := NewCommerceMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	m.WebhookDelivery(ctx, "processed")
	m.WebhookDelivery(ctx, "processed")
	m.OrderReconciled(ctx, true)
	m.LineItemsSkipped(ctx, 0)
	m.LineItemsSkipped(ctx, 2)
	m.Download(ctx, "issued")
	m.FreeClaim(ctx, "claimed")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("failed to collect: %v", err)
	}

	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type for %s", md.Name)
			}
			for _, dp := range sum.DataPoints {
				totals[md.Name] += dp.Value
			}
		}
	}

	want := map[string]int64{
		"commerce.webhook.deliveries": 2,
		"commerce.orders.reconciled":  1,
		"commerce.line_items.skipped": 2,
		"commerce.downloads":          1,
		"commerce.free_claims":        1,
	}
	for name, value := range want {
		if totals[name] != value {
			t.Errorf("%s = %d, want %d", name, totals[name], value)
		}
	}
}

func TestCommerceMetrics_NilIsNoop(t *testing.T) {
	var m *CommerceMetrics
	m.WebhookDelivery(context.Background(), "processed")
	m.Download(context.Background(), "issued")
}

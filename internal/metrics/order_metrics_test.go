package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.NewRegistry())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewOrderMetrics(t *testing.T) {
	metrics := newTestMetrics()

	if metrics.ordersCreated == nil {
		t.Error("ordersCreated counter should not be nil")
	}
	if metrics.ordersCancelled == nil {
		t.Error("ordersCancelled counter should not be nil")
	}
	if metrics.backorders == nil {
		t.Error("backorders counter should not be nil")
	}
	if metrics.opDuration == nil {
		t.Error("opDuration histogram should not be nil")
	}
}

func TestRecordCounters(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordOrderCreated()
	metrics.RecordOrderCreated()
	metrics.RecordOrderCancelled()
	metrics.RecordBackorder()
	metrics.RecordStockMovement()
	metrics.RecordOutboxEvent()

	if got := counterValue(t, metrics.ordersCreated); got != 2 {
		t.Errorf("ordersCreated = %v, want 2", got)
	}
	if got := counterValue(t, metrics.ordersCancelled); got != 1 {
		t.Errorf("ordersCancelled = %v, want 1", got)
	}
	if got := counterValue(t, metrics.backorders); got != 1 {
		t.Errorf("backorders = %v, want 1", got)
	}
	if got := counterValue(t, metrics.stockMovements); got != 1 {
		t.Errorf("stockMovements = %v, want 1", got)
	}
	if got := counterValue(t, metrics.outboxEvents); got != 1 {
		t.Errorf("outboxEvents = %v, want 1", got)
	}
}

func TestRecordOpDuration(t *testing.T) {
	metrics := newTestMetrics()

	metrics.RecordOpDuration("create_order", 15*time.Millisecond)

	histogram, err := metrics.opDuration.GetMetricWithLabelValues("create_order")
	if err != nil {
		t.Fatalf("get histogram: %v", err)
	}

	var m dto.Metric
	if err := histogram.(prometheus.Histogram).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", m.GetHistogram().GetSampleCount())
	}
}

func TestDuplicateRegistrationReusesCollector(t *testing.T) {
	registry := prometheus.NewRegistry()

	first := newOrderMetricsWithRegisterer(registry)
	second := newOrderMetricsWithRegisterer(registry)

	first.RecordOrderCreated()
	second.RecordOrderCreated()

	if got := counterValue(t, second.ordersCreated); got != 2 {
		t.Errorf("shared counter = %v, want 2", got)
	}
}

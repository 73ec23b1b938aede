package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов и движений склада.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated   prometheus.Counter
	ordersCancelled prometheus.Counter
	ordersCompleted prometheus.Counter
	ordersDeleted   prometheus.Counter
	linesAdjusted   prometheus.Counter

	// Счётчики складских событий
	backorders       prometheus.Counter
	stockAdjustments prometheus.Counter
	stockMovements   prometheus.Counter
	outboxEvents     prometheus.Counter

	// Гистограмма времени выполнения операций фасада
	opDuration *prometheus.HistogramVec
}

// NewOrderMetrics создаёт метрики с регистрацией в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCancelled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_orders_cancelled_total",
			Help: "Total number of orders cancelled",
		}),
		ordersCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_orders_completed_total",
			Help: "Total number of orders completed",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		linesAdjusted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_order_lines_adjusted_total",
			Help: "Total number of order line quantity adjustments",
		}),
		backorders: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_backorders_total",
			Help: "Total number of orders that drove product stock negative",
		}),
		stockAdjustments: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_stock_manual_adjustments_total",
			Help: "Total number of manual stock adjustments",
		}),
		stockMovements: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_stock_movements_total",
			Help: "Total number of stock ledger movements recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "inventpro_outbox_events_total",
			Help: "Total number of events enqueued to the transactional outbox",
		}),
		opDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "inventpro_order_op_duration_seconds",
			Help:    "Duration of order facade operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"op"}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderCancelled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordOrderCancelled() {
	m.ordersCancelled.Inc()
}

// RecordOrderCompleted увеличивает счётчик завершённых заказов.
func (m *OrderMetrics) RecordOrderCompleted() {
	m.ordersCompleted.Inc()
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	m.ordersDeleted.Inc()
}

// RecordLineAdjusted увеличивает счётчик изменений количества в позициях.
func (m *OrderMetrics) RecordLineAdjusted() {
	m.linesAdjusted.Inc()
}

// RecordBackorder увеличивает счётчик заказов, уведших сток в минус.
func (m *OrderMetrics) RecordBackorder() {
	m.backorders.Inc()
}

// RecordManualAdjustment увеличивает счётчик ручных корректировок склада.
func (m *OrderMetrics) RecordManualAdjustment() {
	m.stockAdjustments.Inc()
}

// RecordStockMovement увеличивает счётчик записей в журнале движений.
func (m *OrderMetrics) RecordStockMovement() {
	m.stockMovements.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordOpDuration записывает время выполнения операции фасада.
func (m *OrderMetrics) RecordOpDuration(op string, duration time.Duration) {
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

package kafka

// Topics для Kafka
const (
	TopicOrderEvents     = "inventpro.order.events"
	TopicStockEvents     = "inventpro.stock.events"
	TopicDeadLetterQueue = "inventpro.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// TopicForAggregate выбирает topic по типу агрегата outbox-сообщения.
// События заказов и складских движений разведены по разным topic'ам,
// чтобы консьюмеры подписывались только на нужный поток.
func TopicForAggregate(aggregateType string) string {
	switch aggregateType {
	case "product":
		return TopicStockEvents
	default:
		return TopicOrderEvents
	}
}

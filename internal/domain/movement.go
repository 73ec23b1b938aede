package domain

import "time"

// MovementReason классифицирует причину движения стока.
type MovementReason string

const (
	// MovementReasonOrderCreate — списание при создании заказа.
	MovementReasonOrderCreate MovementReason = "order.create"
	// MovementReasonLineAdjust — изменение количества в позиции заказа.
	MovementReasonLineAdjust MovementReason = "order.line_adjust"
	// MovementReasonReversal — возврат стока при отмене/удалении заказа или позиции.
	MovementReasonReversal MovementReason = "order.reversal"
	// MovementReasonManual — ручная корректировка склада.
	MovementReasonManual MovementReason = "manual"
)

// StockMovement — неизменяемая запись в журнале движений склада.
// Каждая мутация стока (заказ, возврат, ручная корректировка) оставляет
// ровно одну такую запись в той же транзакции.
type StockMovement struct {
	ID        string
	ProductID string
	// OrderID пуст для ручных корректировок.
	OrderID string
	// Delta — знак списания: отрицательное значение уменьшает сток.
	Delta int64
	// ResultingStock — остаток товара сразу после применения Delta.
	ResultingStock int64
	Reason         MovementReason
	// Note — произвольный комментарий (для ручных корректировок).
	Note       string
	OccurredAt time.Time
}

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound возвращается, если заказ не найден или мягко удалён.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound возвращается, если товар не найден или мягко удалён.
	ErrProductNotFound = errors.New("product not found")
	// ErrClientNotFound возвращается, если клиент не найден или мягко удалён.
	ErrClientNotFound = errors.New("client not found")
	// ErrOrderLineNotFound возвращается, если в заказе нет позиции по указанному товару.
	ErrOrderLineNotFound = errors.New("order line not found")

	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrLinesRequired = errors.New("order must contain at least one line")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQtyInvalid = errors.New("line qty must be greater than zero")
	// Ошибка, если цена отрицательная.
	ErrPriceInvalid = errors.New("price must be non-negative")
	// Ошибка отсутствующей ссылки на клиента.
	ErrClientRequired = errors.New("client reference is required")
	// Ошибка отсутствующего имени товара.
	ErrProductNameRequired = errors.New("product name is required")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("order total must be non-negative")
	// Ошибка несоответствия суммы заказа и сумм позиций.
	ErrTotalMismatch = errors.New("order total does not match lines sum")
	// Ошибка неподдерживаемого значения статуса.
	ErrStatusInvalid = errors.New("unsupported order status")
	// Ошибка нулевой ручной корректировки стока.
	ErrAdjustmentZero = errors.New("stock adjustment delta must be non-zero")

	// ErrForbidden возвращается, когда актор не вправе действовать от имени клиента.
	ErrForbidden = errors.New("actor is not allowed to act for this client")

	// ErrOrderTerminal возвращается при попытке изменить позиции или сток
	// заказа в терминальном статусе.
	ErrOrderTerminal = errors.New("order is in a terminal status")
	// ErrLineImmutable возвращается при попытке изменить цену или товар позиции.
	ErrLineImmutable = errors.New("order line price and product are immutable")
	// ErrStatusConflict — базовая ошибка недопустимого перехода статуса.
	ErrStatusConflict = errors.New("illegal order status transition")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки идемпотентной обработки запросов.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key reused with different request")
)

// TransitionError уточняет, какой именно переход статуса был отклонён.
type TransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition: %s -> %s", e.From, e.To)
}

// Unwrap позволяет распознавать TransitionError через errors.Is(err, ErrStatusConflict).
func (e *TransitionError) Unwrap() error {
	return ErrStatusConflict
}

// IsNotFound классифицирует ошибки отсутствующих сущностей.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrOrderLineNotFound)
}

// IsValidation классифицирует ошибки некорректного ввода.
func IsValidation(err error) bool {
	return errors.Is(err, ErrLinesRequired) ||
		errors.Is(err, ErrQtyInvalid) ||
		errors.Is(err, ErrPriceInvalid) ||
		errors.Is(err, ErrClientRequired) ||
		errors.Is(err, ErrProductNameRequired) ||
		errors.Is(err, ErrTotalNegative) ||
		errors.Is(err, ErrTotalMismatch) ||
		errors.Is(err, ErrStatusInvalid) ||
		errors.Is(err, ErrAdjustmentZero)
}

// IsForbidden классифицирует ошибки авторизации.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsConflict классифицирует конфликты состояния: недопустимый переход статуса,
// мутация терминального заказа, попытка изменить неизменяемые поля позиции.
func IsConflict(err error) bool {
	return errors.Is(err, ErrStatusConflict) ||
		errors.Is(err, ErrOrderTerminal) ||
		errors.Is(err, ErrLineImmutable)
}

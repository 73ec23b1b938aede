package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, сток уже списан, обработка не начата.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing — заказ взят в работу (сборка/отгрузка).
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusCompleted — заказ исполнен; терминальный статус.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён, сток возвращён; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions задаёт допустимые переходы статусов.
// Переход в тот же статус обрабатывается отдельно как идемпотентный no-op.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
}

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус терминальным: после него позиции
// и сток заказа менять нельзя.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода s → next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderLine представляет одну позицию заказа — снимок товара на момент создания.
type OrderLine struct {
	ID      string
	OrderID string
	// ProductID неизменяем после создания позиции.
	ProductID string
	// Qty — количество единиц; единственное изменяемое поле позиции.
	Qty int64
	// PriceMinor — цена за единицу, зафиксированная в момент создания позиции.
	// Последующие изменения цены товара на неё не влияют.
	PriceMinor int64
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Order агрегирует позиции заказа, статус и производную сумму.
type Order struct {
	ID       string
	ClientID string
	Status   OrderStatus
	// TotalMinor — сумма заказа; поддерживается инкрементально и всегда равна
	// сумме qty*price по неудалённым позициям.
	TotalMinor int64
	// Backorder = true, если хотя бы одна позиция увела сток товара в минус.
	Backorder bool
	// StockRestored = true после возврата стока (отмена либо удаление заказа).
	// Защищает от повторного возврата, если на одном заказе успели отработать
	// и отмена, и удаление.
	StockRestored bool
	Lines         []OrderLine
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TransitionTo применяет переход статуса согласно state machine.
// Переход в текущий статус — идемпотентный успех без изменений.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !next.Valid() {
		return ErrStatusInvalid
	}
	if o.Status == next {
		return nil
	}
	if !o.Status.CanTransitionTo(next) {
		return &TransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}

// LineForProduct возвращает позицию заказа по товару или nil, если её нет.
func (o *Order) LineForProduct(productID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ClientID == "" {
		errs = append(errs, ErrClientRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}

	// Сверяем сумму заказа с суммой позиций: qty * price.
	var calc int64
	for _, line := range o.Lines {
		if line.Qty <= 0 {
			errs = append(errs, ErrQtyInvalid)
		}
		if line.PriceMinor < 0 {
			errs = append(errs, ErrPriceInvalid)
		}
		calc += line.Qty * line.PriceMinor
	}
	if calc != o.TotalMinor {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

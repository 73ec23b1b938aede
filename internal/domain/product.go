package domain

import "time"

// Product описывает товар вместе с его складским остатком.
type Product struct {
	ID string
	// Name — уникальное имя товара.
	Name string
	// PriceMinor — текущая цена за единицу в минимальных денежных единицах (центы).
	PriceMinor int64
	// Stock — остаток на складе. Отрицательное значение допустимо и означает
	// оформленный backorder: товар продан «в минус» до пополнения склада.
	Stock int64
	// DeletedAt отмечает мягкое удаление; репозитории по умолчанию такие записи не видят.
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted сообщает, помечен ли товар как удалённый.
func (p Product) Deleted() bool {
	return p.DeletedAt != nil
}

// ValidateInvariants проверяет базовые инварианты товара.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.PriceMinor < 0 {
		errs = append(errs, ErrPriceInvalid)
	}
	// Остаток не проверяем: отрицательный сток — валидное состояние (backorder).

	return errs
}

package domain

import "time"

// Client описывает покупателя, на которого оформляются заказы.
type Client struct {
	ID   string
	Name string
	// TaxID — национальный налоговый идентификатор (RUT); уникальный
	// альтернативный ключ для поиска клиента при создании заказа.
	TaxID     string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deleted сообщает, помечен ли клиент как удалённый.
func (c Client) Deleted() bool {
	return c.DeletedAt != nil
}

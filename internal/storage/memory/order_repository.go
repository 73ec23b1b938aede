package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// orderRepository — in-memory реализация OrderRepository. Позиции хранятся
// внутри заказа; мягко удалённые позиции остаются в слайсе с выставленным
// DeletedAt и отфильтровываются при чтении.
type orderRepository struct {
	access
}

func (r *orderRepository) Create(_ context.Context, order domain.Order) error {
	return r.write(func(st *state) error {
		if _, exists := st.orders[order.ID]; exists {
			return domain.ErrOrderNotFound
		}
		st.orders[order.ID] = cloneOrder(order)
		return nil
	})
}

func (r *orderRepository) Get(_ context.Context, id string) (domain.Order, error) {
	var order domain.Order
	err := r.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.DeletedAt != nil {
			return domain.ErrOrderNotFound
		}
		order = visibleOrder(o)
		return nil
	})
	return order, err
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	if !r.inTx() {
		return domain.Order{}, errNoTx
	}
	return r.Get(ctx, id)
}

func (r *orderRepository) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.read(func(st *state) error {
		orders = make([]domain.Order, 0, len(st.orders))
		for _, o := range st.orders {
			if o.DeletedAt != nil {
				continue
			}
			if filter.ClientID != "" && o.ClientID != filter.ClientID {
				continue
			}
			orders = append(orders, visibleOrder(o))
		}

		sort.Slice(orders, func(i, j int) bool {
			if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
				return orders[i].CreatedAt.After(orders[j].CreatedAt)
			}
			return orders[i].ID > orders[j].ID
		})

		if filter.Limit > 0 && len(orders) > filter.Limit {
			orders = orders[:filter.Limit]
		}
		return nil
	})
	return orders, err
}

func (r *orderRepository) UpdateHeader(_ context.Context, order domain.Order) error {
	return r.write(func(st *state) error {
		stored, ok := st.orders[order.ID]
		if !ok || stored.DeletedAt != nil {
			return domain.ErrOrderNotFound
		}
		stored.Status = order.Status
		stored.TotalMinor = order.TotalMinor
		stored.Backorder = order.Backorder
		stored.StockRestored = order.StockRestored
		stored.UpdatedAt = order.UpdatedAt
		st.orders[order.ID] = stored
		return nil
	})
}

func (r *orderRepository) InsertLine(_ context.Context, line domain.OrderLine) error {
	return r.write(func(st *state) error {
		stored, ok := st.orders[line.OrderID]
		if !ok || stored.DeletedAt != nil {
			return domain.ErrOrderNotFound
		}
		stored.Lines = append(stored.Lines, line)
		st.orders[line.OrderID] = stored
		return nil
	})
}

// UpdateLineQty меняет только количество: цена и товар позиции неизменяемы
// по контракту хранилища.
func (r *orderRepository) UpdateLineQty(_ context.Context, lineID string, qty int64, updatedAt time.Time) error {
	return r.write(func(st *state) error {
		for orderID, stored := range st.orders {
			for i := range stored.Lines {
				if stored.Lines[i].ID != lineID || stored.Lines[i].DeletedAt != nil {
					continue
				}
				stored.Lines[i].Qty = qty
				stored.Lines[i].UpdatedAt = updatedAt
				st.orders[orderID] = stored
				return nil
			}
		}
		return domain.ErrOrderLineNotFound
	})
}

func (r *orderRepository) DeleteLine(_ context.Context, lineID string, at time.Time) error {
	return r.write(func(st *state) error {
		for orderID, stored := range st.orders {
			for i := range stored.Lines {
				if stored.Lines[i].ID != lineID || stored.Lines[i].DeletedAt != nil {
					continue
				}
				deletedAt := at
				stored.Lines[i].DeletedAt = &deletedAt
				stored.Lines[i].UpdatedAt = at
				st.orders[orderID] = stored
				return nil
			}
		}
		return domain.ErrOrderLineNotFound
	})
}

func (r *orderRepository) Delete(_ context.Context, id string, at time.Time) error {
	return r.write(func(st *state) error {
		stored, ok := st.orders[id]
		if !ok || stored.DeletedAt != nil {
			return domain.ErrOrderNotFound
		}
		deletedAt := at
		stored.DeletedAt = &deletedAt
		stored.UpdatedAt = at
		st.orders[id] = stored
		return nil
	})
}

// visibleOrder возвращает копию заказа без мягко удалённых позиций.
func visibleOrder(o domain.Order) domain.Order {
	result := o
	result.Lines = make([]domain.OrderLine, 0, len(o.Lines))
	for _, line := range o.Lines {
		if line.DeletedAt == nil {
			result.Lines = append(result.Lines, line)
		}
	}
	return result
}

var _ domain.OrderRepository = (*orderRepository)(nil)

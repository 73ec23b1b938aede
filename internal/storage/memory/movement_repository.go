package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// movementRepository — in-memory журнал движений склада.
type movementRepository struct {
	access
}

func (r *movementRepository) Append(_ context.Context, movement domain.StockMovement) error {
	return r.write(func(st *state) error {
		st.movements = append(st.movements, movement)
		return nil
	})
}

func (r *movementRepository) ListByProduct(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	var result []domain.StockMovement
	err := r.read(func(st *state) error {
		result = make([]domain.StockMovement, 0)
		for _, m := range st.movements {
			if m.ProductID == productID {
				result = append(result, m)
			}
		}

		// Новые записи первыми.
		sort.Slice(result, func(i, j int) bool {
			if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
				return result[i].OccurredAt.After(result[j].OccurredAt)
			}
			return result[i].ID > result[j].ID
		})

		if limit > 0 && len(result) > limit {
			result = result[:limit]
		}
		return nil
	})
	return result, err
}

var _ domain.MovementRepository = (*movementRepository)(nil)

package memory

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// productRepository — in-memory реализация ProductRepository.
type productRepository struct {
	access
}

func (r *productRepository) Create(_ context.Context, product domain.Product) error {
	return r.write(func(st *state) error {
		st.products[product.ID] = product
		return nil
	})
}

func (r *productRepository) Get(_ context.Context, id string) (domain.Product, error) {
	var product domain.Product
	err := r.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.Deleted() {
			return domain.ErrProductNotFound
		}
		product = p
		return nil
	})
	return product, err
}

// GetForUpdate внутри транзакции эквивалентен Get: эксклюзивность обеспечена
// мьютексом хранилища, который WithinTx держит до конца транзакции.
func (r *productRepository) GetForUpdate(ctx context.Context, id string) (domain.Product, error) {
	if !r.inTx() {
		return domain.Product{}, errNoTx
	}
	return r.Get(ctx, id)
}

func (r *productRepository) UpdateStock(_ context.Context, id string, stock int64, updatedAt time.Time) error {
	return r.write(func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.Deleted() {
			return domain.ErrProductNotFound
		}
		p.Stock = stock
		p.UpdatedAt = updatedAt
		st.products[id] = p
		return nil
	})
}

var _ domain.ProductRepository = (*productRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

type productRepository struct {
	q querier
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (
			id, name, price_minor, stock, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		product.ID, product.Name, product.PriceMinor, product.Stock,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	return r.get(ctx, id, false)
}

func (r *productRepository) GetForUpdate(ctx context.Context, id string) (domain.Product, error) {
	if _, inTx := r.q.(*sql.Tx); !inTx {
		return domain.Product{}, errors.New("GetForUpdate requires an open transaction")
	}
	return r.get(ctx, id, true)
}

func (r *productRepository) get(ctx context.Context, id string, forUpdate bool) (domain.Product, error) {
	query := `
		SELECT id, name, price_minor, stock, created_at, updated_at
		FROM products
		WHERE id = $1
		  AND deleted_at IS NULL
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var product domain.Product
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&product.ID, &product.Name, &product.PriceMinor, &product.Stock,
		&product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id string, stock int64, updatedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE products
		SET stock = $1,
		    updated_at = $2
		WHERE id = $3
		  AND deleted_at IS NULL
	`, stock, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

var _ domain.ProductRepository = (*productRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

type orderRepository struct {
	q querier
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO orders (
			id, client_id, status, total_minor, backorder, stock_restored, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		order.ID, order.ClientID, string(order.Status), order.TotalMinor,
		order.Backorder, order.StockRestored, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.get(ctx, id, false)
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	if _, inTx := r.q.(*sql.Tx); !inTx {
		return domain.Order{}, errors.New("GetForUpdate requires an open transaction")
	}
	return r.get(ctx, id, true)
}

func (r *orderRepository) get(ctx context.Context, id string, forUpdate bool) (domain.Order, error) {
	query := `
		SELECT id, client_id, status, total_minor, backorder, stock_restored, created_at, updated_at
		FROM orders
		WHERE id = $1
		  AND deleted_at IS NULL
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var (
		order  domain.Order
		status string
	)
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.ClientID, &status, &order.TotalMinor,
		&order.Backorder, &order.StockRestored, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.Status = domain.OrderStatus(status)

	lines, err := r.loadLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	query := `
		SELECT id, client_id, status, total_minor, backorder, stock_restored, created_at, updated_at
		FROM orders
		WHERE deleted_at IS NULL
	`
	args := make([]any, 0, 2)
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		query += fmt.Sprintf(" AND client_id = $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		var (
			order  domain.Order
			status string
		)
		if err := rows.Scan(
			&order.ID, &order.ClientID, &status, &order.TotalMinor,
			&order.Backorder, &order.StockRestored, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.Status = domain.OrderStatus(status)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	for i := range orders {
		lines, err := r.loadLines(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

func (r *orderRepository) UpdateHeader(ctx context.Context, order domain.Order) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    total_minor = $2,
		    backorder = $3,
		    stock_restored = $4,
		    updated_at = $5
		WHERE id = $6
		  AND deleted_at IS NULL
	`,
		string(order.Status), order.TotalMinor, order.Backorder,
		order.StockRestored, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("update order header: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) InsertLine(ctx context.Context, line domain.OrderLine) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO order_lines (
			id, order_id, product_id, qty, price_minor, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		line.ID, line.OrderID, line.ProductID, line.Qty, line.PriceMinor,
		line.CreatedAt, line.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

func (r *orderRepository) UpdateLineQty(ctx context.Context, lineID string, qty int64, updatedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE order_lines
		SET qty = $1,
		    updated_at = $2
		WHERE id = $3
		  AND deleted_at IS NULL
	`, qty, updatedAt, lineID)
	if err != nil {
		return fmt.Errorf("update order line qty: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderLineNotFound
	}

	return nil
}

func (r *orderRepository) DeleteLine(ctx context.Context, lineID string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE order_lines
		SET deleted_at = $1,
		    updated_at = $1
		WHERE id = $2
		  AND deleted_at IS NULL
	`, at, lineID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderLineNotFound
	}

	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders
		SET deleted_at = $1,
		    updated_at = $1
		WHERE id = $2
		  AND deleted_at IS NULL
	`, at, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) loadLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, qty, price_minor, created_at, updated_at
		FROM order_lines
		WHERE order_id = $1
		  AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.Qty, &line.PriceMinor,
			&line.CreatedAt, &line.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	return lines, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)

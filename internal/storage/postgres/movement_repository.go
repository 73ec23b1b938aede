package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

type movementRepository struct {
	q querier
}

func (r *movementRepository) Append(ctx context.Context, movement domain.StockMovement) error {
	var orderID sql.NullString
	if movement.OrderID != "" {
		orderID = sql.NullString{String: movement.OrderID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, `
		INSERT INTO stock_movements (
			id, product_id, order_id, delta, resulting_stock, reason, note, occurred_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		movement.ID, movement.ProductID, orderID, movement.Delta,
		movement.ResultingStock, string(movement.Reason), movement.Note, movement.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

func (r *movementRepository) ListByProduct(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	query := `
		SELECT id, product_id, order_id, delta, resulting_stock, reason, note, occurred_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY occurred_at DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.q.QueryContext(ctx, query+" LIMIT $2", productID, limit)
	} else {
		rows, err = r.q.QueryContext(ctx, query, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0)
	for rows.Next() {
		var (
			movement domain.StockMovement
			orderID  sql.NullString
			reason   string
		)
		if err := rows.Scan(
			&movement.ID, &movement.ProductID, &orderID, &movement.Delta,
			&movement.ResultingStock, &reason, &movement.Note, &movement.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		movement.OrderID = orderID.String
		movement.Reason = domain.MovementReason(reason)
		movements = append(movements, movement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock movements: %w", err)
	}

	return movements, nil
}

var _ domain.MovementRepository = (*movementRepository)(nil)

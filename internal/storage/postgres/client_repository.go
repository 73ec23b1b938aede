package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

type clientRepository struct {
	q querier
}

func (r *clientRepository) Create(ctx context.Context, client domain.Client) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO clients (
			id, name, tax_id, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5)
	`,
		client.ID, client.Name, client.TaxID, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id string) (domain.Client, error) {
	return r.getBy(ctx, "id = $1", id, false)
}

func (r *clientRepository) GetForUpdate(ctx context.Context, id string) (domain.Client, error) {
	if _, inTx := r.q.(*sql.Tx); !inTx {
		return domain.Client{}, errors.New("GetForUpdate requires an open transaction")
	}
	return r.getBy(ctx, "id = $1", id, true)
}

func (r *clientRepository) GetByTaxIDForUpdate(ctx context.Context, taxID string) (domain.Client, error) {
	if _, inTx := r.q.(*sql.Tx); !inTx {
		return domain.Client{}, errors.New("GetByTaxIDForUpdate requires an open transaction")
	}
	return r.getBy(ctx, "tax_id = $1", taxID, true)
}

func (r *clientRepository) getBy(ctx context.Context, cond, arg string, forUpdate bool) (domain.Client, error) {
	query := `
		SELECT id, name, tax_id, created_at, updated_at
		FROM clients
		WHERE ` + cond + `
		  AND deleted_at IS NULL
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var client domain.Client
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&client.ID, &client.Name, &client.TaxID, &client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("select client: %w", err)
	}

	return client, nil
}

var _ domain.ClientRepository = (*clientRepository)(nil)

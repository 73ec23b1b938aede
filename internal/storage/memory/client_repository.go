package memory

import (
	"context"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// clientRepository — in-memory реализация ClientRepository.
type clientRepository struct {
	access
}

func (r *clientRepository) Create(_ context.Context, client domain.Client) error {
	return r.write(func(st *state) error {
		st.clients[client.ID] = client
		return nil
	})
}

func (r *clientRepository) Get(_ context.Context, id string) (domain.Client, error) {
	var client domain.Client
	err := r.read(func(st *state) error {
		c, ok := st.clients[id]
		if !ok || c.Deleted() {
			return domain.ErrClientNotFound
		}
		client = c
		return nil
	})
	return client, err
}

func (r *clientRepository) GetForUpdate(ctx context.Context, id string) (domain.Client, error) {
	if !r.inTx() {
		return domain.Client{}, errNoTx
	}
	return r.Get(ctx, id)
}

func (r *clientRepository) GetByTaxIDForUpdate(_ context.Context, taxID string) (domain.Client, error) {
	if !r.inTx() {
		return domain.Client{}, errNoTx
	}
	var client domain.Client
	err := r.read(func(st *state) error {
		for _, c := range st.clients {
			if c.TaxID == taxID && !c.Deleted() {
				client = c
				return nil
			}
		}
		return domain.ErrClientNotFound
	})
	return client, err
}

var _ domain.ClientRepository = (*clientRepository)(nil)

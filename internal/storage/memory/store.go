package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// errNoTx возвращается при попытке блокирующего чтения вне транзакции.
var errNoTx = errors.New("locked read requires an open transaction")

// state — полное состояние in-memory хранилища. Транзакция работает с
// глубокой копией: commit подменяет состояние целиком, откат просто
// выбрасывает копию.
type state struct {
	products  map[string]domain.Product
	clients   map[string]domain.Client
	orders    map[string]domain.Order
	movements []domain.StockMovement
	outbox    map[string]*outboxRecord
	outboxSeq int
}

func newState() *state {
	return &state{
		products: make(map[string]domain.Product),
		clients:  make(map[string]domain.Client),
		orders:   make(map[string]domain.Order),
		outbox:   make(map[string]*outboxRecord),
	}
}

func (st *state) clone() *state {
	dst := &state{
		products:  make(map[string]domain.Product, len(st.products)),
		clients:   make(map[string]domain.Client, len(st.clients)),
		orders:    make(map[string]domain.Order, len(st.orders)),
		movements: make([]domain.StockMovement, len(st.movements)),
		outbox:    make(map[string]*outboxRecord, len(st.outbox)),
		outboxSeq: st.outboxSeq,
	}
	for id, p := range st.products {
		dst.products[id] = p
	}
	for id, c := range st.clients {
		dst.clients[id] = c
	}
	for id, o := range st.orders {
		dst.orders[id] = cloneOrder(o)
	}
	copy(dst.movements, st.movements)
	for id, rec := range st.outbox {
		recCopy := *rec
		dst.outbox[id] = &recCopy
	}
	return dst
}

func cloneOrder(o domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(o.Lines))
	copy(lines, o.Lines)
	o.Lines = lines
	return o
}

// Store — in-memory реализация domain.Store для разработки и тестов.
// Транзакции сериализуются на одном мьютексе: это грубее построчных
// блокировок PostgreSQL, но даёт те же наблюдаемые гарантии изоляции.
type Store struct {
	mu    sync.RWMutex
	state *state
	idem  *idempotencyRepositoryInMemory
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		state: newState(),
		idem:  newIdempotencyRepository(),
	}
}

// WithinTx выполняет fn над копией состояния и коммитит её при nil-ошибке.
func (s *Store) WithinTx(_ context.Context, fn func(tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &memTx{st: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

func (s *Store) Products() domain.ProductRepository {
	return &productRepository{access: access{store: s}}
}

func (s *Store) Clients() domain.ClientRepository {
	return &clientRepository{access: access{store: s}}
}

func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{access: access{store: s}}
}

func (s *Store) Movements() domain.MovementRepository {
	return &movementRepository{access: access{store: s}}
}

func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{access: access{store: s}}
}

func (s *Store) Idempotency() domain.IdempotencyRepository {
	return s.idem
}

// memTx отдаёт репозитории, привязанные к снапшоту транзакции.
type memTx struct {
	st *state
}

func (t *memTx) Products() domain.ProductRepository {
	return &productRepository{access: access{tx: t.st}}
}

func (t *memTx) Clients() domain.ClientRepository {
	return &clientRepository{access: access{tx: t.st}}
}

func (t *memTx) Orders() domain.OrderRepository {
	return &orderRepository{access: access{tx: t.st}}
}

func (t *memTx) Movements() domain.MovementRepository {
	return &movementRepository{access: access{tx: t.st}}
}

func (t *memTx) Outbox() domain.OutboxRepository {
	return &outboxRepository{access: access{tx: t.st}}
}

// access прячет разницу между транзакционным доступом (мьютекс уже взят в
// WithinTx) и прямым чтением через Store.
type access struct {
	store *Store
	tx    *state
}

func (a access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.state)
}

func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	return fn(a.store.state)
}

func (a access) inTx() bool {
	return a.tx != nil
}

var _ domain.Store = (*Store)(nil)
var _ domain.Tx = (*memTx)(nil)

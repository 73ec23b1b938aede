package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Store оборачивает SQL-подключение к PostgreSQL и реализует domain.Store.
type Store struct {
	db *sql.DB
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// querier объединяет *sql.DB и *sql.Tx: один и тот же код репозитория
// работает и в транзакции, и вне её.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithinTx выполняет fn в одной транзакции БД: commit при nil-ошибке,
// полный откат в остальных случаях. Блокировки FOR UPDATE, взятые внутри
// fn, удерживаются до конца транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&pgTx{q: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Products() domain.ProductRepository {
	return &productRepository{q: s.db}
}

func (s *Store) Clients() domain.ClientRepository {
	return &clientRepository{q: s.db}
}

func (s *Store) Orders() domain.OrderRepository {
	return &orderRepository{q: s.db}
}

func (s *Store) Movements() domain.MovementRepository {
	return &movementRepository{q: s.db}
}

func (s *Store) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: s.db}
}

func (s *Store) Idempotency() domain.IdempotencyRepository {
	return &idempotencyRepository{q: s.db}
}

// pgTx отдаёт репозитории, привязанные к открытой транзакции.
type pgTx struct {
	q *sql.Tx
}

func (t *pgTx) Products() domain.ProductRepository {
	return &productRepository{q: t.q}
}

func (t *pgTx) Clients() domain.ClientRepository {
	return &clientRepository{q: t.q}
}

func (t *pgTx) Orders() domain.OrderRepository {
	return &orderRepository{q: t.q}
}

func (t *pgTx) Movements() domain.MovementRepository {
	return &movementRepository{q: t.q}
}

func (t *pgTx) Outbox() domain.OutboxRepository {
	return &outboxRepository{q: t.q}
}

var _ domain.Store = (*Store)(nil)
var _ domain.Tx = (*pgTx)(nil)

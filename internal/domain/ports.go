package domain

import (
	"context"
	"time"
)

// Store — корневой порт хранилища. Все мутации проходят через WithinTx:
// одна бизнес-операция = одна транзакция, частичные эффекты не фиксируются.
// Методы-аксессоры вне транзакции годятся только для чтения.
type Store interface {
	// WithinTx открывает транзакцию, передаёт её в fn и коммитит при nil-ошибке.
	// Любая ошибка fn приводит к полному откату.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	Products() ProductRepository
	Clients() ClientRepository
	Orders() OrderRepository
	Movements() MovementRepository
	Outbox() OutboxRepository
	Idempotency() IdempotencyRepository
}

// Tx предоставляет репозитории, привязанные к одной открытой транзакции.
// Только внутри Tx доступны блокирующие чтения (*ForUpdate): строка, которая
// будет мутирована, обязана быть прочитана под эксклюзивной блокировкой.
type Tx interface {
	Products() ProductRepository
	Clients() ClientRepository
	Orders() OrderRepository
	Movements() MovementRepository
	Outbox() OutboxRepository
}

// ProductRepository описывает доступ к товарам. Все чтения по умолчанию
// не видят мягко удалённые записи.
type ProductRepository interface {
	// Create сохраняет новый товар (используется фикстурами и сидированием).
	Create(ctx context.Context, product Product) error
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id string) (Product, error)
	// GetForUpdate читает товар под эксклюзивной блокировкой строки.
	// Допустим только внутри транзакции; конкурентные операции над одним
	// товаром сериализуются на этой блокировке.
	GetForUpdate(ctx context.Context, id string) (Product, error)
	// UpdateStock записывает новый остаток товара.
	UpdateStock(ctx context.Context, id string, stock int64, updatedAt time.Time) error
}

// ClientRepository описывает доступ к клиентам.
type ClientRepository interface {
	Create(ctx context.Context, client Client) error
	Get(ctx context.Context, id string) (Client, error)
	// GetForUpdate блокирует строку клиента, чтобы конкурентное мягкое
	// удаление не прошло между резолвингом и созданием заказа.
	GetForUpdate(ctx context.Context, id string) (Client, error)
	// GetByTaxIDForUpdate резолвит клиента по налоговому идентификатору (RUT)
	// под той же блокировкой.
	GetByTaxIDForUpdate(ctx context.Context, taxID string) (Client, error)
}

// OrderFilter задаёт параметры выборки заказов.
type OrderFilter struct {
	ClientID string
	Limit    int
}

// OrderRepository описывает доступ к заказам и их позициям.
type OrderRepository interface {
	// Create сохраняет шапку заказа; позиции добавляются отдельно через InsertLine.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ вместе с позициями или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// GetForUpdate читает заказ и его позиции под эксклюзивной блокировкой.
	// Порядок блокировок фиксированный: сначала строка заказа, затем товары.
	GetForUpdate(ctx context.Context, id string) (Order, error)
	// List возвращает заказы по фильтру, новые первыми.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	// UpdateHeader записывает изменяемые поля шапки: статус, сумму, флаги.
	UpdateHeader(ctx context.Context, order Order) error
	// InsertLine добавляет позицию заказа.
	InsertLine(ctx context.Context, line OrderLine) error
	// UpdateLineQty меняет количество в позиции. Цена и товар позиции
	// неизменяемы; других методов мутации позиций нет.
	UpdateLineQty(ctx context.Context, lineID string, qty int64, updatedAt time.Time) error
	// DeleteLine мягко удаляет позицию.
	DeleteLine(ctx context.Context, lineID string, at time.Time) error
	// Delete мягко удаляет шапку заказа.
	Delete(ctx context.Context, id string, at time.Time) error
}

// MovementRepository хранит журнал движений склада.
type MovementRepository interface {
	Append(ctx context.Context, movement StockMovement) error
	ListByProduct(ctx context.Context, productID string, limit int) ([]StockMovement, error)
}

// OutboxPublisher публикует события из transactional outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
// Enqueue внутри Tx попадает в ту же транзакцию, что и изменение состояния.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

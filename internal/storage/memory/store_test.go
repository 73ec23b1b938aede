package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	"github.com/vladislavdragonenkov/inventpro/internal/storage/memory"
)

func seedProduct(t *testing.T, store *memory.Store, id string, stock int64) {
	t.Helper()
	now := time.Now().UTC()
	err := store.Products().Create(context.Background(), domain.Product{
		ID: id, Name: "widget", PriceMinor: 100, Stock: stock, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestWithinTx_CommitAppliesChanges(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "prod-1", 10)

	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		p, err := tx.Products().GetForUpdate(ctx, "prod-1")
		if err != nil {
			return err
		}
		return tx.Products().UpdateStock(ctx, p.ID, p.Stock-4, time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	p, err := store.Products().Get(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Stock != 6 {
		t.Fatalf("stock = %d, want 6", p.Stock)
	}
}

func TestWithinTx_ErrorDiscardsSnapshot(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "prod-1", 10)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		if err := tx.Products().UpdateStock(ctx, "prod-1", 0, time.Now().UTC()); err != nil {
			return err
		}
		if _, err := tx.Outbox().Enqueue(ctx, domain.OutboxMessage{
			AggregateType: "order", AggregateID: "o-1", EventType: "OrderCreated", Payload: []byte("{}"),
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Откат выбрасывает и изменение стока, и событие outbox.
	p, err := store.Products().Get(ctx, "prod-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Stock != 10 {
		t.Fatalf("stock = %d, want 10 after rollback", p.Stock)
	}
	pending, err := store.Outbox().PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("outbox must be empty after rollback, got %d", len(pending))
	}
}

func TestGetForUpdate_RequiresTransaction(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	seedProduct(t, store, "prod-1", 10)

	if _, err := store.Products().GetForUpdate(ctx, "prod-1"); err == nil {
		t.Fatal("GetForUpdate outside tx must fail")
	}
	if _, err := store.Orders().GetForUpdate(ctx, "order-1"); err == nil {
		t.Fatal("GetForUpdate outside tx must fail")
	}

	err := store.WithinTx(ctx, func(tx domain.Tx) error {
		_, err := tx.Products().GetForUpdate(ctx, "prod-1")
		return err
	})
	if err != nil {
		t.Fatalf("GetForUpdate inside tx: %v", err)
	}
}

func TestOrders_SoftDeleteHidesOrder(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	order := domain.Order{
		ID:       "order-1",
		ClientID: "client-1",
		Status:   domain.OrderStatusPending,
		Lines: []domain.OrderLine{
			{ID: "line-1", OrderID: "order-1", ProductID: "prod-1", Qty: 2, PriceMinor: 100, CreatedAt: now, UpdatedAt: now},
		},
		TotalMinor: 200,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, line := range order.Lines {
		if err := store.Orders().InsertLine(ctx, line); err != nil {
			t.Fatalf("insert line: %v", err)
		}
	}

	if err := store.Orders().Delete(ctx, "order-1", now.Add(time.Second)); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Orders().Get(ctx, "order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	orders, err := store.Orders().List(ctx, domain.OrderFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("deleted order must not be listed, got %d", len(orders))
	}
}

func TestOrders_DeletedLinesInvisible(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	order := domain.Order{ID: "order-1", ClientID: "client-1", Status: domain.OrderStatusPending, CreatedAt: now, UpdatedAt: now}
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}
	lines := []domain.OrderLine{
		{ID: "line-1", OrderID: "order-1", ProductID: "prod-1", Qty: 1, PriceMinor: 100, CreatedAt: now, UpdatedAt: now},
		{ID: "line-2", OrderID: "order-1", ProductID: "prod-2", Qty: 1, PriceMinor: 200, CreatedAt: now, UpdatedAt: now},
	}
	for _, line := range lines {
		if err := store.Orders().InsertLine(ctx, line); err != nil {
			t.Fatalf("insert line: %v", err)
		}
	}

	if err := store.Orders().DeleteLine(ctx, "line-1", now.Add(time.Second)); err != nil {
		t.Fatalf("delete line: %v", err)
	}

	got, err := store.Orders().Get(ctx, "order-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Lines) != 1 || got.Lines[0].ProductID != "prod-2" {
		t.Fatalf("deleted line must be hidden: %+v", got.Lines)
	}
}

func TestMovements_AppendAndListByProduct(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, delta := range []int64{-3, 2, -1} {
		err := store.Movements().Append(ctx, domain.StockMovement{
			ID:             string(rune('a' + i)),
			ProductID:      "prod-1",
			Delta:          delta,
			ResultingStock: 10 + delta,
			Reason:         domain.MovementReasonManual,
			OccurredAt:     now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	err := store.Movements().Append(ctx, domain.StockMovement{
		ID: "other", ProductID: "prod-2", Delta: 5, ResultingStock: 5,
		Reason: domain.MovementReasonManual, OccurredAt: now,
	})
	if err != nil {
		t.Fatalf("append other: %v", err)
	}

	movements, err := store.Movements().ListByProduct(ctx, "prod-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("movements = %d, want 3", len(movements))
	}
	for _, m := range movements {
		if m.ProductID != "prod-1" {
			t.Fatalf("foreign movement in result: %+v", m)
		}
	}

	limited, err := store.Movements().ListByProduct(ctx, "prod-1", 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited movements = %d, want 2", len(limited))
	}
}

func TestOutbox_MarkSentRemovesFromPending(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	msg, err := store.Outbox().Enqueue(ctx, domain.OutboxMessage{
		AggregateType: "order", AggregateID: "o-1", EventType: "OrderCreated", Payload: []byte("{}"),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("Enqueue must assign an id")
	}

	stats, err := store.Outbox().Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("pending = %d, want 1", stats.PendingCount)
	}

	if err := store.Outbox().MarkSent(ctx, msg.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	pending, err := store.Outbox().PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}

	if err := store.Outbox().MarkSent(ctx, "missing"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish, got %v", err)
	}
}

func TestIdempotency_Lifecycle(t *testing.T) {
	store := memory.NewStore()
	repo := store.Idempotency()
	ctx := context.Background()

	ttlAt := time.Now().UTC().Add(time.Hour)
	rec, err := repo.CreateProcessing(ctx, "key-1", "hash-1", ttlAt)
	if err != nil {
		t.Fatalf("create processing: %v", err)
	}
	if rec.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("status = %s", rec.Status)
	}

	// Повтор с тем же хэшом — конфликт ключа, с другим — несовпадение хэша.
	if _, err := repo.CreateProcessing(ctx, "key-1", "hash-1", ttlAt); !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateProcessing(ctx, "key-1", "hash-2", ttlAt); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}

	if err := repo.MarkDone(ctx, "key-1", []byte(`{"id":"o-1"}`), 201); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	got, err := repo.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.IdempotencyStatusDone || got.HTTPStatus != 201 {
		t.Fatalf("unexpected record: %+v", got)
	}

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
}

func TestIdempotency_DeleteExpired(t *testing.T) {
	store := memory.NewStore()
	repo := store.Idempotency()
	ctx := context.Background()

	now := time.Now().UTC()
	if _, err := repo.CreateProcessing(ctx, "old", "h1", now.Add(-time.Hour)); err != nil {
		t.Fatalf("create old: %v", err)
	}
	if _, err := repo.CreateProcessing(ctx, "fresh", "h2", now.Add(time.Hour)); err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	deleted, err := repo.DeleteExpired(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := repo.Get(ctx, "old"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("old key must be gone, got %v", err)
	}
	if _, err := repo.Get(ctx, "fresh"); err != nil {
		t.Fatalf("fresh key must survive: %v", err)
	}
}

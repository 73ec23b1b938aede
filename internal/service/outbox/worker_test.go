package outbox_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	"github.com/vladislavdragonenkov/inventpro/internal/service/outbox"
	"github.com/vladislavdragonenkov/inventpro/internal/storage/memory"
)

// fakePublisher имитирует брокер: первые failFirst вызовов завершаются ошибкой.
type fakePublisher struct {
	mu        sync.Mutex
	published []domain.OutboxMessage
	failFirst int
	calls     int
}

func (p *fakePublisher) Publish(event domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls++
	if p.calls <= p.failFirst {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *fakePublisher) publishedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func enqueueTestEvent(t *testing.T, repo domain.OutboxRepository, eventType string) domain.OutboxMessage {
	t.Helper()
	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   "order-1",
		EventType:     eventType,
		Payload:       []byte(`{"order_id":"order-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return msg
}

func TestProcessOnce_PublishesAndMarksSent(t *testing.T) {
	store := memory.NewStore()
	repo := store.Outbox()
	publisher := &fakePublisher{}

	enqueueTestEvent(t, repo, "OrderCreated")
	enqueueTestEvent(t, repo, "OrderStatusChanged")

	worker := outbox.NewWorker(repo, publisher, outbox.WithRetryBaseDelay(0))
	worker.ProcessOnce(context.Background())

	if got := publisher.publishedCount(); got != 2 {
		t.Fatalf("published = %d, want 2", got)
	}
	pending, err := repo.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0 after publish", len(pending))
	}
}

func TestProcessOnce_RetriesTransientFailure(t *testing.T) {
	store := memory.NewStore()
	repo := store.Outbox()
	publisher := &fakePublisher{failFirst: 2}

	enqueueTestEvent(t, repo, "OrderCreated")

	worker := outbox.NewWorker(repo, publisher,
		outbox.WithMaxAttempts(3),
		outbox.WithRetryBaseDelay(0),
	)
	worker.ProcessOnce(context.Background())

	// Две неудачи и успех на третьей попытке.
	if got := publisher.publishedCount(); got != 1 {
		t.Fatalf("published = %d, want 1", got)
	}
	pending, err := repo.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}

func TestProcessOnce_ExhaustedRetriesGoToDLQ(t *testing.T) {
	store := memory.NewStore()
	repo := store.Outbox()
	publisher := &fakePublisher{failFirst: 100}
	dlq := &fakePublisher{}

	msg := enqueueTestEvent(t, repo, "OrderCreated")

	worker := outbox.NewWorker(repo, publisher,
		outbox.WithMaxAttempts(2),
		outbox.WithRetryBaseDelay(0),
		outbox.WithDLQPublisher(dlq),
	)
	worker.ProcessOnce(context.Background())

	if got := publisher.publishedCount(); got != 0 {
		t.Fatalf("published = %d, want 0", got)
	}
	if got := dlq.publishedCount(); got != 1 {
		t.Fatalf("dlq published = %d, want 1", got)
	}
	dlq.mu.Lock()
	dlqEvent := dlq.published[0]
	dlq.mu.Unlock()
	if dlqEvent.ID != msg.ID || dlqEvent.EventType != "OrderCreated" {
		t.Fatalf("unexpected dlq event: %+v", dlqEvent)
	}

	// Сообщение помечено failed и больше не попадает в pending.
	pending, err := repo.PullPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}

func TestProcessOnce_EmptyOutboxIsNoop(t *testing.T) {
	store := memory.NewStore()
	publisher := &fakePublisher{}

	worker := outbox.NewWorker(store.Outbox(), publisher)
	worker.ProcessOnce(context.Background())

	if got := publisher.publishedCount(); got != 0 {
		t.Fatalf("published = %d, want 0", got)
	}
}

func TestProcessOnce_CancelledContextStops(t *testing.T) {
	store := memory.NewStore()
	repo := store.Outbox()
	publisher := &fakePublisher{}

	enqueueTestEvent(t, repo, "OrderCreated")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := outbox.NewWorker(repo, publisher)
	worker.ProcessOnce(ctx)

	if got := publisher.publishedCount(); got != 0 {
		t.Fatalf("published = %d, want 0 with cancelled ctx", got)
	}
}

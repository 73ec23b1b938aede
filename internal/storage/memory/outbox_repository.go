package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
)

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg        domain.OutboxMessage
	status     string
	attemptCnt int
	seq        int
	createdAt  time.Time
	updatedAt  time.Time
}

// outboxRepository — in-memory хранилище для transactional outbox.
// Enqueue внутри транзакции пишет в снапшот и коммитится вместе с остальными
// изменениями — откат транзакции выбрасывает и событие.
type outboxRepository struct {
	access
}

func (r *outboxRepository) Enqueue(_ context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	err := r.write(func(st *state) error {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		st.outboxSeq++
		st.outbox[msg.ID] = &outboxRecord{
			msg:       msg,
			status:    "pending",
			seq:       st.outboxSeq,
			createdAt: now,
			updatedAt: now,
		}
		return nil
	})
	if err != nil {
		return domain.OutboxMessage{}, err
	}
	return msg, nil
}

func (r *outboxRepository) PullPending(_ context.Context, limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var result []domain.OutboxMessage
	err := r.read(func(st *state) error {
		pending := make([]*outboxRecord, 0, len(st.outbox))
		for _, rec := range st.outbox {
			if rec.status == "pending" {
				pending = append(pending, rec)
			}
		}
		// Порядок постановки в очередь.
		sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

		result = make([]domain.OutboxMessage, 0, limit)
		for _, rec := range pending {
			result = append(result, rec.msg)
			if len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, err
}

func (r *outboxRepository) Stats(_ context.Context) (domain.OutboxStats, error) {
	var stats domain.OutboxStats
	err := r.read(func(st *state) error {
		for _, rec := range st.outbox {
			if rec.status != "pending" {
				continue
			}
			stats.PendingCount++
			if stats.OldestPendingAt.IsZero() || rec.createdAt.Before(stats.OldestPendingAt) {
				stats.OldestPendingAt = rec.createdAt
			}
		}
		return nil
	})
	return stats, err
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "sent")
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "failed")
}

func (r *outboxRepository) markStatus(_ context.Context, id, status string) error {
	return r.write(func(st *state) error {
		rec, ok := st.outbox[id]
		if !ok {
			return domain.ErrOutboxPublish
		}
		rec.status = status
		rec.attemptCnt++
		rec.updatedAt = time.Now().UTC()
		return nil
	})
}

var _ domain.OutboxRepository = (*outboxRepository)(nil)

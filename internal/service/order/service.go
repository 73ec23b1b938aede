package ordersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	"github.com/vladislavdragonenkov/inventpro/internal/metrics"
)

const (
	aggregateTypeOrder   = "order"
	aggregateTypeProduct = "product"

	eventOrderCreated       = "OrderCreated"
	eventOrderStatusChanged = "OrderStatusChanged"
	eventOrderLineAdjusted  = "OrderLineAdjusted"
	eventOrderLineRemoved   = "OrderLineRemoved"
	eventOrderDeleted       = "OrderDeleted"
	eventStockAdjusted      = "StockAdjusted"
)

// CreateOrderInput описывает запрос на создание заказа. Клиент задаётся либо
// идентификатором, либо налоговым идентификатором (RUT) — ровно одним из двух.
type CreateOrderInput struct {
	ClientID    string
	ClientTaxID string
	Lines       []LineRequest
}

// Service — фасад жизненного цикла заказа: единственная точка входа для
// внешних вызовов. Каждая мутирующая операция выполняется в одной транзакции;
// при любой ошибке транзакция откатывается целиком, частичные списания стока
// не наблюдаемы.
type Service struct {
	store   domain.Store
	engine  *Engine
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewService создаёт фасад с метриками.
func NewService(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	m := metrics.NewOrderMetrics()
	return &Service{
		store:   store,
		engine:  NewEngine(logger.WithField("layer", "stock-engine"), m),
		logger:  logger,
		metrics: m,
	}
}

// NewServiceWithoutMetrics создаёт фасад без регистрации метрик (для тестов).
func NewServiceWithoutMetrics(store domain.Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-service")
	}
	return &Service{
		store:  store,
		engine: NewEngine(logger.WithField("layer", "stock-engine"), nil),
		logger: logger,
	}
}

// CreateOrder создаёт заказ: резолвит клиента под блокировкой, проверяет
// политику доступа, списывает сток и фиксирует снимки позиций.
func (s *Service) CreateOrder(ctx context.Context, actor domain.Actor, input CreateOrderInput) (domain.Order, error) {
	defer s.observe("create_order", time.Now())

	if len(input.Lines) == 0 {
		return domain.Order{}, domain.ErrLinesRequired
	}
	if input.ClientID == "" && input.ClientTaxID == "" {
		return domain.Order{}, domain.ErrClientRequired
	}

	var created domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		client, err := s.resolveClient(ctx, tx, input)
		if err != nil {
			return err
		}
		if !domain.Allowed(actor, domain.ActionCreateOrder, client.ID) {
			return domain.ErrForbidden
		}

		now := time.Now().UTC()
		order := domain.Order{
			ID:        uuid.NewString(),
			ClientID:  client.ID,
			Status:    domain.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		if err := s.engine.ApplyNewLines(ctx, tx, &order, input.Lines, now); err != nil {
			return err
		}
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, aggregateTypeOrder, order.ID, eventOrderCreated, map[string]any{
			"order_id":    order.ID,
			"client_id":   order.ClientID,
			"total_minor": order.TotalMinor,
			"backorder":   order.Backorder,
			"lines":       len(order.Lines),
		}); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		if created.Backorder {
			s.metrics.RecordBackorder()
		}
	}
	s.logger.WithFields(log.Fields{
		"order_id":  created.ID,
		"client_id": created.ClientID,
		"backorder": created.Backorder,
	}).Info("order created")

	return created, nil
}

// GetOrder возвращает заказ с позициями; чтение без блокировок.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.store.Orders().Get(ctx, id)
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	return s.store.Orders().List(ctx, filter)
}

// UpdateOrderStatus применяет переход статуса. Переход в текущий статус —
// идемпотентный успех без побочных эффектов. Отмена возвращает сток ровно
// один раз (флаг StockRestored).
func (s *Service) UpdateOrderStatus(ctx context.Context, actor domain.Actor, id string, next domain.OrderStatus) (domain.Order, error) {
	defer s.observe("update_status", time.Now())

	if !next.Valid() {
		return domain.Order{}, domain.ErrStatusInvalid
	}

	var updated domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !domain.Allowed(actor, domain.ActionMutateOrder, order.ClientID) {
			return domain.ErrForbidden
		}

		prev := order.Status
		if err := order.TransitionTo(next); err != nil {
			return err
		}
		if prev == next {
			updated = order
			return nil
		}

		now := time.Now().UTC()
		order.UpdatedAt = now
		if next == domain.OrderStatusCancelled {
			if err := s.engine.RestoreOrderStock(ctx, tx, &order, now); err != nil {
				return err
			}
		}
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, aggregateTypeOrder, order.ID, eventOrderStatusChanged, map[string]any{
			"order_id": order.ID,
			"from":     string(prev),
			"to":       string(next),
		}); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if s.metrics != nil {
		switch updated.Status {
		case domain.OrderStatusCancelled:
			s.metrics.RecordOrderCancelled()
		case domain.OrderStatusCompleted:
			s.metrics.RecordOrderCompleted()
		}
	}

	return updated, nil
}

// UpdateLineQuantity меняет количество товара в заказе через движок стока.
func (s *Service) UpdateLineQuantity(ctx context.Context, actor domain.Actor, orderID, productID string, newQty int64) (domain.Order, error) {
	defer s.observe("update_line_qty", time.Now())

	var updated domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !domain.Allowed(actor, domain.ActionMutateOrder, order.ClientID) {
			return domain.ErrForbidden
		}

		if err := s.engine.AdjustLineQty(ctx, tx, &order, productID, newQty); err != nil {
			return err
		}
		order.UpdatedAt = time.Now().UTC()
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, aggregateTypeOrder, order.ID, eventOrderLineAdjusted, map[string]any{
			"order_id":   order.ID,
			"product_id": productID,
			"qty":        newQty,
		}); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// RemoveOrderLine убирает позицию из заказа, возвращая её сток.
func (s *Service) RemoveOrderLine(ctx context.Context, actor domain.Actor, orderID, productID string) (domain.Order, error) {
	defer s.observe("remove_line", time.Now())

	var updated domain.Order
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !domain.Allowed(actor, domain.ActionMutateOrder, order.ClientID) {
			return domain.ErrForbidden
		}
		if order.Status.Terminal() {
			return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderTerminal)
		}

		line := order.LineForProduct(productID)
		if line == nil {
			return fmt.Errorf("product %s in order %s: %w", productID, order.ID, domain.ErrOrderLineNotFound)
		}

		now := time.Now().UTC()
		if err := s.engine.ReverseLine(ctx, tx, &order, *line, now); err != nil {
			return err
		}
		order.UpdatedAt = now
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, aggregateTypeOrder, order.ID, eventOrderLineRemoved, map[string]any{
			"order_id":   order.ID,
			"product_id": productID,
		}); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// DeleteOrder мягко удаляет заказ, предварительно вернув сток по всем
// позициям (если он не был возвращён отменой раньше).
func (s *Service) DeleteOrder(ctx context.Context, actor domain.Actor, id string) error {
	defer s.observe("delete_order", time.Now())

	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		order, err := tx.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !domain.Allowed(actor, domain.ActionMutateOrder, order.ClientID) {
			return domain.ErrForbidden
		}

		now := time.Now().UTC()
		if err := s.engine.ReverseOrder(ctx, tx, &order, now); err != nil {
			return err
		}
		order.UpdatedAt = now
		// Сохраняем финальное состояние шапки до мягкого удаления: флаг
		// StockRestored остаётся в строке и защищает от повторного возврата.
		if err := tx.Orders().UpdateHeader(ctx, order); err != nil {
			return err
		}
		if err := tx.Orders().Delete(ctx, order.ID, now); err != nil {
			return err
		}

		return s.enqueueEvent(ctx, tx, aggregateTypeOrder, order.ID, eventOrderDeleted, map[string]any{
			"order_id":  order.ID,
			"client_id": order.ClientID,
		})
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderDeleted()
	}
	s.logger.WithField("order_id", id).Info("order deleted")
	return nil
}

// AdjustStock выполняет ручную корректировку остатка товара.
// Доступно только привилегированным ролям.
func (s *Service) AdjustStock(ctx context.Context, actor domain.Actor, productID string, delta int64, note string) (domain.Product, error) {
	defer s.observe("adjust_stock", time.Now())

	if !domain.Allowed(actor, domain.ActionAdjustStock, "") {
		return domain.Product{}, domain.ErrForbidden
	}

	var product domain.Product
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		now := time.Now().UTC()
		adjusted, err := s.engine.ManualAdjust(ctx, tx, productID, delta, note, now)
		if err != nil {
			return err
		}

		if err := s.enqueueEvent(ctx, tx, aggregateTypeProduct, adjusted.ID, eventStockAdjusted, map[string]any{
			"product_id": adjusted.ID,
			"delta":      delta,
			"stock":      adjusted.Stock,
			"note":       note,
		}); err != nil {
			return err
		}

		product = adjusted
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// ListMovements возвращает журнал движений склада по товару.
func (s *Service) ListMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if _, err := s.store.Products().Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.Movements().ListByProduct(ctx, productID, limit)
}

func (s *Service) resolveClient(ctx context.Context, tx domain.Tx, input CreateOrderInput) (domain.Client, error) {
	if input.ClientID != "" {
		return tx.Clients().GetForUpdate(ctx, input.ClientID)
	}
	return tx.Clients().GetByTaxIDForUpdate(ctx, input.ClientTaxID)
}

func (s *Service) enqueueEvent(ctx context.Context, tx domain.Tx, aggregateType, aggregateID, eventType string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	msg := domain.OutboxMessage{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := tx.Outbox().Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
	return nil
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOpDuration(op, time.Since(start))
	}
}

package ordersvc

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	"github.com/vladislavdragonenkov/inventpro/internal/metrics"
)

// LineRequest — запрошенная позиция заказа: товар и количество.
type LineRequest struct {
	ProductID string
	Qty       int64
}

// Engine применяет пары (товар, дельта количества) к складским остаткам и
// позициям заказа, поддерживая сумму заказа в консистентном состоянии.
// Все методы должны вызываться внутри одной транзакции фасада; товары
// читаются только через GetForUpdate, чтобы конкурентные операции над одним
// товаром сериализовались, а не гонялись.
type Engine struct {
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewEngine создаёт движок корректировки стока.
func NewEngine(logger *log.Entry, m *metrics.OrderMetrics) *Engine {
	if logger == nil {
		logger = log.WithField("component", "stock-engine")
	}
	return &Engine{logger: logger, metrics: m}
}

// mergeLineRequests сворачивает дубли по товару (количества суммируются),
// валидирует количества и возвращает запросы, отсортированные по ProductID.
// Сортировка фиксирует порядок захвата блокировок товаров и исключает
// deadlock между конкурентными заказами с пересекающимися товарами.
func mergeLineRequests(reqs []LineRequest) ([]LineRequest, error) {
	if len(reqs) == 0 {
		return nil, domain.ErrLinesRequired
	}

	merged := make(map[string]int64, len(reqs))
	for _, req := range reqs {
		if req.ProductID == "" {
			return nil, fmt.Errorf("line without product: %w", domain.ErrQtyInvalid)
		}
		if req.Qty <= 0 {
			return nil, fmt.Errorf("line for product %s: %w", req.ProductID, domain.ErrQtyInvalid)
		}
		merged[req.ProductID] += req.Qty
	}

	result := make([]LineRequest, 0, len(merged))
	for productID, qty := range merged {
		result = append(result, LineRequest{ProductID: productID, Qty: qty})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })

	return result, nil
}

// ApplyNewLines списывает сток под новые позиции заказа и создаёт снимки
// позиций по текущей цене товара. Отрицательный остаток допустим: такой
// заказ помечается флагом Backorder.
func (e *Engine) ApplyNewLines(ctx context.Context, tx domain.Tx, order *domain.Order, reqs []LineRequest, now time.Time) error {
	merged, err := mergeLineRequests(reqs)
	if err != nil {
		return err
	}

	for _, req := range merged {
		product, err := tx.Products().GetForUpdate(ctx, req.ProductID)
		if err != nil {
			return err
		}

		newStock := product.Stock - req.Qty
		if err := tx.Products().UpdateStock(ctx, product.ID, newStock, now); err != nil {
			return err
		}
		if newStock < 0 {
			order.Backorder = true
		}

		if existing := order.LineForProduct(product.ID); existing != nil {
			// Повторное добавление товара сливается в существующую позицию.
			// Цена позиции неизменяема, поэтому добавка идёт по сохранённой цене.
			existing.Qty += req.Qty
			existing.UpdatedAt = now
			if err := tx.Orders().UpdateLineQty(ctx, existing.ID, existing.Qty, now); err != nil {
				return err
			}
			order.TotalMinor += existing.PriceMinor * req.Qty
		} else {
			line := domain.OrderLine{
				ID:         uuid.NewString(),
				OrderID:    order.ID,
				ProductID:  product.ID,
				Qty:        req.Qty,
				PriceMinor: product.PriceMinor,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := tx.Orders().InsertLine(ctx, line); err != nil {
				return err
			}
			order.Lines = append(order.Lines, line)
			order.TotalMinor += product.PriceMinor * req.Qty
		}

		if err := e.appendMovement(ctx, tx, product.ID, order.ID, -req.Qty, newStock, domain.MovementReasonOrderCreate, "", now); err != nil {
			return err
		}
	}

	return nil
}

// AdjustLineQty меняет количество в существующей позиции заказа.
// Дельта стока = -(newQty - qty): увеличение количества дополнительно
// списывает сток, уменьшение — возвращает. Сумма заказа корректируется по
// цене, зафиксированной в позиции, а не по текущей цене товара.
func (e *Engine) AdjustLineQty(ctx context.Context, tx domain.Tx, order *domain.Order, productID string, newQty int64) error {
	if order.Status.Terminal() {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrOrderTerminal)
	}
	if newQty <= 0 {
		return fmt.Errorf("new qty %d: %w", newQty, domain.ErrQtyInvalid)
	}

	line := order.LineForProduct(productID)
	if line == nil {
		return fmt.Errorf("product %s in order %s: %w", productID, order.ID, domain.ErrOrderLineNotFound)
	}

	delta := newQty - line.Qty
	if delta == 0 {
		return nil
	}

	now := time.Now().UTC()
	product, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return err
	}

	newStock := product.Stock - delta
	if err := tx.Products().UpdateStock(ctx, product.ID, newStock, now); err != nil {
		return err
	}
	if newStock < 0 {
		order.Backorder = true
	}

	order.TotalMinor += line.PriceMinor * delta
	line.Qty = newQty
	line.UpdatedAt = now
	if err := tx.Orders().UpdateLineQty(ctx, line.ID, newQty, now); err != nil {
		return err
	}

	if err := e.appendMovement(ctx, tx, product.ID, order.ID, -delta, newStock, domain.MovementReasonLineAdjust, "", now); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.RecordLineAdjusted()
	}
	return nil
}

// ReverseLine возвращает сток по одной позиции и мягко удаляет её.
// Сумма заказа уменьшается на qty*price и ограничивается снизу нулём,
// чтобы поглотить возможный накопленный дрейф.
func (e *Engine) ReverseLine(ctx context.Context, tx domain.Tx, order *domain.Order, line domain.OrderLine, now time.Time) error {
	product, err := tx.Products().GetForUpdate(ctx, line.ProductID)
	if err != nil {
		return err
	}

	newStock := product.Stock + line.Qty
	if err := tx.Products().UpdateStock(ctx, product.ID, newStock, now); err != nil {
		return err
	}

	order.TotalMinor -= line.PriceMinor * line.Qty
	if order.TotalMinor < 0 {
		order.TotalMinor = 0
	}

	if err := tx.Orders().DeleteLine(ctx, line.ID, now); err != nil {
		return err
	}
	order.Lines = removeLine(order.Lines, line.ID)

	return e.appendMovement(ctx, tx, product.ID, order.ID, line.Qty, newStock, domain.MovementReasonReversal, "", now)
}

// RestoreOrderStock возвращает сток по всем позициям заказа, не трогая сами
// позиции и сумму (путь отмены: заказ остаётся видимым вместе с позициями).
// Повторный вызов — no-op благодаря флагу StockRestored.
func (e *Engine) RestoreOrderStock(ctx context.Context, tx domain.Tx, order *domain.Order, now time.Time) error {
	if order.StockRestored {
		return nil
	}

	for _, line := range sortedByProduct(order.Lines) {
		product, err := tx.Products().GetForUpdate(ctx, line.ProductID)
		if err != nil {
			return err
		}
		newStock := product.Stock + line.Qty
		if err := tx.Products().UpdateStock(ctx, product.ID, newStock, now); err != nil {
			return err
		}
		if err := e.appendMovement(ctx, tx, product.ID, order.ID, line.Qty, newStock, domain.MovementReasonReversal, "", now); err != nil {
			return err
		}
	}

	order.StockRestored = true
	return nil
}

// ReverseOrder откатывает заказ целиком: возвращает сток (если он ещё не
// возвращался отменой), мягко удаляет все позиции и обнуляет сумму.
func (e *Engine) ReverseOrder(ctx context.Context, tx domain.Tx, order *domain.Order, now time.Time) error {
	if err := e.RestoreOrderStock(ctx, tx, order, now); err != nil {
		return err
	}

	for _, line := range sortedByProduct(order.Lines) {
		if err := tx.Orders().DeleteLine(ctx, line.ID, now); err != nil {
			return err
		}
		order.TotalMinor -= line.PriceMinor * line.Qty
	}
	if order.TotalMinor < 0 {
		order.TotalMinor = 0
	}
	order.Lines = nil

	return nil
}

// ManualAdjust применяет ручную корректировку остатка: delta прибавляется
// к стоку под той же блокировкой строки, что и заказные операции.
func (e *Engine) ManualAdjust(ctx context.Context, tx domain.Tx, productID string, delta int64, note string, now time.Time) (domain.Product, error) {
	if delta == 0 {
		return domain.Product{}, domain.ErrAdjustmentZero
	}

	product, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}

	product.Stock += delta
	product.UpdatedAt = now
	if err := tx.Products().UpdateStock(ctx, product.ID, product.Stock, now); err != nil {
		return domain.Product{}, err
	}

	if err := e.appendMovement(ctx, tx, product.ID, "", delta, product.Stock, domain.MovementReasonManual, note, now); err != nil {
		return domain.Product{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordManualAdjustment()
	}
	return product, nil
}

func (e *Engine) appendMovement(ctx context.Context, tx domain.Tx, productID, orderID string, delta, resulting int64, reason domain.MovementReason, note string, now time.Time) error {
	movement := domain.StockMovement{
		ID:             uuid.NewString(),
		ProductID:      productID,
		OrderID:        orderID,
		Delta:          delta,
		ResultingStock: resulting,
		Reason:         reason,
		Note:           note,
		OccurredAt:     now,
	}
	if err := tx.Movements().Append(ctx, movement); err != nil {
		return fmt.Errorf("append stock movement: %w", err)
	}
	if e.metrics != nil {
		e.metrics.RecordStockMovement()
	}
	return nil
}

func sortedByProduct(lines []domain.OrderLine) []domain.OrderLine {
	sorted := make([]domain.OrderLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

func removeLine(lines []domain.OrderLine, lineID string) []domain.OrderLine {
	result := lines[:0]
	for _, line := range lines {
		if line.ID != lineID {
			result = append(result, line)
		}
	}
	return result
}

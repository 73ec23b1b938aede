package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	ordersvc "github.com/vladislavdragonenkov/inventpro/internal/service/order"
)

// Handler обрабатывает HTTP-запросы жизненного цикла заказов и склада.
type Handler struct {
	svc    *ordersvc.Service
	logger *log.Entry
}

// NewHandler создаёт HTTP-обработчики поверх фасада заказов.
func NewHandler(svc *ordersvc.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "api")
	}
	return &Handler{svc: svc, logger: logger}
}

type lineRequestDTO struct {
	ProductID string `json:"product_id"`
	Qty       int64  `json:"qty"`
}

type createOrderRequest struct {
	ClientID    string           `json:"client_id,omitempty"`
	ClientTaxID string           `json:"client_tax_id,omitempty"`
	Lines       []lineRequestDTO `json:"lines"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updateLineQtyRequest struct {
	Qty int64 `json:"qty"`
}

type adjustStockRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note,omitempty"`
}

type lineResponse struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Qty        int64  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type orderResponse struct {
	ID         string         `json:"id"`
	ClientID   string         `json:"client_id"`
	Status     string         `json:"status"`
	TotalMinor int64          `json:"total_minor"`
	Backorder  bool           `json:"backorder"`
	Lines      []lineResponse `json:"lines"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

type productResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceMinor int64  `json:"price_minor"`
	Stock      int64  `json:"stock"`
}

type movementResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	OrderID        string    `json:"order_id,omitempty"`
	Delta          int64     `json:"delta"`
	ResultingStock int64     `json:"resulting_stock"`
	Reason         string    `json:"reason"`
	Note           string    `json:"note,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func toOrderResponse(order domain.Order) orderResponse {
	lines := make([]lineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, lineResponse{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Qty:        line.Qty,
			PriceMinor: line.PriceMinor,
		})
	}
	return orderResponse{
		ID:         order.ID,
		ClientID:   order.ClientID,
		Status:     string(order.Status),
		TotalMinor: order.TotalMinor,
		Backorder:  order.Backorder,
		Lines:      lines,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	input := ordersvc.CreateOrderInput{
		ClientID:    req.ClientID,
		ClientTaxID: req.ClientTaxID,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, ordersvc.LineRequest{
			ProductID: line.ProductID,
			Qty:       line.Qty,
		})
	}

	order, err := h.svc.CreateOrder(r.Context(), actorFromRequest(r), input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := domain.OrderFilter{
		ClientID: r.URL.Query().Get("client_id"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	orders, err := h.svc.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.svc.UpdateOrderStatus(
		r.Context(),
		actorFromRequest(r),
		chi.URLParam(r, "orderID"),
		domain.OrderStatus(req.Status),
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateLineQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateLineQtyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.svc.UpdateLineQuantity(
		r.Context(),
		actorFromRequest(r),
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "productID"),
		req.Qty,
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) removeOrderLine(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.RemoveOrderLine(
		r.Context(),
		actorFromRequest(r),
		chi.URLParam(r, "orderID"),
		chi.URLParam(r, "productID"),
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteOrder(r.Context(), actorFromRequest(r), chi.URLParam(r, "orderID")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	product, err := h.svc.AdjustStock(
		r.Context(),
		actorFromRequest(r),
		chi.URLParam(r, "productID"),
		req.Delta,
		req.Note,
	)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{
		ID:         product.ID,
		Name:       product.Name,
		PriceMinor: product.PriceMinor,
		Stock:      product.Stock,
	})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	movements, err := h.svc.ListMovements(r.Context(), chi.URLParam(r, "productID"), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		result = append(result, movementResponse{
			ID:             m.ID,
			ProductID:      m.ProductID,
			OrderID:        m.OrderID,
			Delta:          m.Delta,
			ResultingStock: m.ResultingStock,
			Reason:         string(m.Reason),
			Note:           m.Note,
			OccurredAt:     m.OccurredAt,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

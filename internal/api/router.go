package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventpro/internal/domain"
	ordersvc "github.com/vladislavdragonenkov/inventpro/internal/service/order"
)

// NewRouter собирает маршруты API поверх фасада заказов.
// idemRepo может быть nil: тогда Idempotency-Key игнорируется.
func NewRouter(svc *ordersvc.Service, idemRepo domain.IdempotencyRepository, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "api")
	}
	handler := NewHandler(svc, logger)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(30 * time.Second))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.With(IdempotencyMiddleware(idemRepo, logger)).Post("/", handler.createOrder)
			r.Get("/", handler.listOrders)

			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", handler.getOrder)
				r.Delete("/", handler.deleteOrder)
				r.Patch("/status", handler.updateOrderStatus)

				r.Route("/lines/{productID}", func(r chi.Router) {
					r.Patch("/", handler.updateLineQuantity)
					r.Delete("/", handler.removeOrderLine)
				})
			})
		})

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Post("/stock-adjustments", handler.adjustStock)
			r.Get("/movements", handler.listMovements)
		})
	})

	return router
}

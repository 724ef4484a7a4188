package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/order"
)

func RegisterRoutes(r chi.Router, s order.OrderService, l *zap.Logger) {
	handler := NewOrderHandler(s, l.With(zap.String("component", "OrderHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.CreateOrder)
		r.Get("/{orderID}", handler.GetOrder)
		r.Delete("/{orderID}", handler.CancelOrder)
		r.Get("/buyer/{buyer}", handler.GetOrdersByBuyer)
	})
}

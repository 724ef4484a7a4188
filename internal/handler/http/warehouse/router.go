package warehouse

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/warehouse"
)

func RegisterRoutes(r chi.Router, s warehouse.WarehouseService, l *zap.Logger) {
	handler := NewWarehouseHandler(s, l.With(zap.String("component", "WarehouseHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/availability", func(r chi.Router) {
		r.Post("/", handler.UpsertAvailability)
		r.Get("/{productID}", handler.GetAvailability)
	})
}

package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/order"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type OrderHandler struct {
	service order.OrderService
	logger  *zap.Logger
}

func NewOrderHandler(s order.OrderService, l *zap.Logger) *OrderHandler {
	return &OrderHandler{service: s, logger: l}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req order.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreateOrder", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrder) {
			h.logger.Warn("Bad request for CreateOrder", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Error creating order", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		h.logger.Warn("Order ID is missing in GetOrder request")
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			h.logger.Info("Order not found", zap.String("order_id", orderID))
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting order", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) GetOrdersByBuyer(w http.ResponseWriter, r *http.Request) {
	buyer := chi.URLParam(r, "buyer")
	if buyer == "" {
		h.logger.Warn("Buyer is missing in GetOrdersByBuyer request")
		http.Error(w, "Buyer is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetOrdersByBuyer(r.Context(), buyer)
	if err != nil {
		h.logger.Error("Error getting orders for buyer", zap.String("buyer", buyer), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		h.logger.Warn("Order ID is missing in CancelOrder request")
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	if err := h.service.CancelOrder(r.Context(), orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			h.logger.Info("Order not found for cancellation", zap.String("order_id", orderID))
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrOrderNotCancellable) {
			h.logger.Warn("Order not cancellable", zap.String("order_id", orderID))
			http.Error(w, "Order cannot be cancelled in its current status", http.StatusConflict)
			return
		}
		h.logger.Error("Error cancelling order", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

package warehouse

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/warehouse"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type UpsertAvailabilityRequest struct {
	ProductID   string `json:"productId"`
	WarehouseID string `json:"warehouseId"`
	Quantity    int    `json:"quantity"`
	MinQuantity int    `json:"minQuantity"`
}

type WarehouseHandler struct {
	service warehouse.WarehouseService
	logger  *zap.Logger
}

func NewWarehouseHandler(s warehouse.WarehouseService, l *zap.Logger) *WarehouseHandler {
	return &WarehouseHandler{service: s, logger: l}
}

func (h *WarehouseHandler) UpsertAvailability(w http.ResponseWriter, r *http.Request) {
	var req UpsertAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for UpsertAvailability", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ProductID == "" || req.WarehouseID == "" {
		http.Error(w, "Product ID and warehouse ID are required", http.StatusBadRequest)
		return
	}

	res, err := h.service.UpsertAvailability(r.Context(), req.ProductID, req.WarehouseID, req.Quantity, req.MinQuantity)
	if err != nil {
		h.logger.Error("Error upserting availability", zap.String("product_id", req.ProductID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *WarehouseHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		http.Error(w, "Product ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetAvailability(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.logger.Info("Product not found", zap.String("product_id", productID))
			http.Error(w, "Product not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting availability", zap.String("product_id", productID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

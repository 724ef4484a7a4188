package wallet

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/wallet"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

type CreateWalletRequest struct {
	Username       string  `json:"username"`
	InitialBalance float64 `json:"initialBalance"`
}

type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

type WalletHandler struct {
	service wallet.WalletService
	logger  *zap.Logger
}

func NewWalletHandler(s wallet.WalletService, l *zap.Logger) *WalletHandler {
	return &WalletHandler{service: s, logger: l}
}

func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for CreateWallet", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}
	if req.InitialBalance < 0 {
		http.Error(w, "Initial balance must be non-negative", http.StatusBadRequest)
		return
	}

	res, err := h.service.CreateWallet(r.Context(), req.Username, req.InitialBalance)
	if err != nil {
		if errors.Is(err, domain.ErrWalletAlreadyExists) {
			h.logger.Warn("Wallet already exists", zap.String("username", req.Username))
			http.Error(w, "Wallet already exists for this user", http.StatusConflict)
			return
		}
		h.logger.Error("Error creating wallet", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.GetWallet(r.Context(), username)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			h.logger.Info("Wallet not found", zap.String("username", username))
			http.Error(w, "Wallet not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error getting wallet", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, "Username is required", http.StatusBadRequest)
		return
	}

	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for TopUp", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	res, err := h.service.TopUp(r.Context(), username, req.Amount)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			h.logger.Info("Wallet not found for top-up", zap.String("username", username))
			http.Error(w, "Wallet not found", http.StatusNotFound)
			return
		}
		h.logger.Error("Error topping up wallet", zap.String("username", username), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

package wallet

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/wallet"
)

func RegisterRoutes(r chi.Router, s wallet.WalletService, l *zap.Logger) {
	handler := NewWalletHandler(s, l.With(zap.String("component", "WalletHTTPHandler")))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", handler.CreateWallet)
		r.Get("/{username}", handler.GetWallet)
		r.Post("/{username}/top-up", handler.TopUp)
	})
}

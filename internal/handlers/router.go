package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.LoggingMiddleware)
	r.Use(h.RecoverMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/api/wallets", h.HandleCreateWallet)
	r.Get("/api/wallets/{address}", h.HandleGetWallet)
	r.Get("/api/wallets/{address}/balance", h.HandleGetBalance)

	r.Post("/api/transactions", h.HandleSubmitTransaction)
	r.Get("/api/transactions", h.HandleGetTransactions)

	r.Post("/api/mine", h.HandleMine)

	r.Get("/api/chain", h.HandleGetChain)
	r.Get("/api/chain/validate", h.HandleValidateChain)
	r.Get("/api/blocks/{index}", h.HandleGetBlock)

	return r
}

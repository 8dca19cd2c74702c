// Package handlers contains the HTTP surface of the ledger:
//
// - wallet creation and lookup
// - transaction submission and history
// - mining trigger
// - chain read and integrity check
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"blockledger/internal/ledger"
	"blockledger/internal/models"
	"blockledger/internal/services"
	"blockledger/internal/storage"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service services.LedgerService
	logger  *slog.Logger
}

func NewHandler(service services.LedgerService, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// HandleCreateWallet creates a wallet and returns it once with the private
// key; subsequent reads never expose it.
func (h *Handler) HandleCreateWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.service.CreateWallet()
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"address":     wallet.Address,
		"public_key":  wallet.PublicKey,
		"private_key": wallet.PrivateKey,
		"balance":     wallet.Balance,
	})
}

func (h *Handler) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	wallet, err := h.service.GetWallet(address)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, wallet)
}

func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	balance, err := h.service.GetBalance(address)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]float64{"balance": balance})
}

// HandleSubmitTransaction admits a transaction to the pending pool. The fee
// defaults when absent from the request.
func (h *Handler) HandleSubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From   string   `json:"from"`
		To     string   `json:"to"`
		Amount float64  `json:"amount"`
		Fee    *float64 `json:"fee"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fee := ledger.DefaultFee
	if req.Fee != nil {
		fee = *req.Fee
	}

	tx, err := h.service.SubmitTransaction(req.From, req.To, req.Amount, fee)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, tx)
}

func (h *Handler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	status := r.URL.Query().Get("status")
	if address == "" {
		h.respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	switch status {
	case "", models.StatusPending, models.StatusConfirmed, models.StatusFailed:
	default:
		h.respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	txs, err := h.service.GetTransactions(address, status)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, txs)
}

// HandleMine seals one block over the eligible pending transactions. Mining
// blocks the request for the duration of the nonce search; the request
// context bounds it.
func (h *Handler) HandleMine(w http.ResponseWriter, r *http.Request) {
	block, err := h.service.MineBlock(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, block)
}

func (h *Handler) HandleGetBlock(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid block index")
		return
	}

	block, err := h.service.GetBlock(index)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, block)
}

func (h *Handler) HandleGetChain(w http.ResponseWriter, r *http.Request) {
	chain, err := h.service.GetChain()
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, chain)
}

func (h *Handler) HandleValidateChain(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ValidateChain()
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

// handleError maps service and core errors to HTTP statuses:
// - validation errors -> 400 Bad Request
// - missing entities -> 404 Not Found
// - insufficient balance -> 402 Payment Required
// - duplicates and empty sealing -> 409 Conflict
// - interrupted mining -> 503 Service Unavailable
// - everything else -> 500 Internal Server Error
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAddress),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSelfTransfer),
		errors.Is(err, ledger.ErrMalformedKey):
		h.respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, storage.ErrWalletNotFound),
		errors.Is(err, storage.ErrTransactionNotFound),
		errors.Is(err, storage.ErrBlockNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, ledger.ErrInsufficientBalance):
		h.respondError(w, http.StatusPaymentRequired, err.Error())

	case errors.Is(err, storage.ErrDuplicateTransaction),
		errors.Is(err, storage.ErrDuplicateBlock),
		errors.Is(err, ledger.ErrNoEligibleTransactions):
		h.respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())

	default:
		h.logger.Error("internal error", "error", err)
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

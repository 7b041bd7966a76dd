package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Error kinds exposed in the response envelope. Clients branch on the kind,
// never on the message text.
const (
	kindInvalidRequest      = "InvalidRequest"
	kindInvalidAmount       = "InvalidAmount"
	kindUnsupportedMethod   = "UnsupportedMethod"
	kindNotFound            = "NotFound"
	kindInactive            = "Inactive"
	kindInsufficientFunds   = "InsufficientFunds"
	kindInsufficientCredit  = "InsufficientCredit"
	kindWalletLimitExceeded = "WalletLimitExceeded"
	kindNoLinkedAccount     = "NoLinkedAccount"
	kindConflict            = "Conflict"
	kindInternal            = "Internal"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

// writeError maps a store/engine error onto the failure taxonomy and the
// matching HTTP status. Unrecognized errors surface as opaque internals so
// storage details never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	kind, status := classify(err)

	message := err.Error()
	if kind == kindInternal {
		zap.L().Error("Request failed", zap.Error(err))
		message = "internal error"
	}
	writeJSON(w, status, models.ErrorResponse{Error: models.APIError{Kind: kind, Message: message}})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest,
		models.ErrorResponse{Error: models.APIError{Kind: kindInvalidRequest, Message: message}})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, store.ErrInvalidAmount):
		return kindInvalidAmount, http.StatusBadRequest
	case errors.Is(err, store.ErrUnsupportedMethod):
		return kindUnsupportedMethod, http.StatusBadRequest
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrCardNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		return kindNotFound, http.StatusNotFound
	case errors.Is(err, store.ErrAccountInactive),
		errors.Is(err, store.ErrCardInactive):
		return kindInactive, http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInsufficientFunds):
		return kindInsufficientFunds, http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrInsufficientCredit):
		return kindInsufficientCredit, http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrWalletLimitExceeded):
		return kindWalletLimitExceeded, http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNoLinkedAccount):
		return kindNoLinkedAccount, http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrConcurrentModification),
		errors.Is(err, store.ErrDuplicateReference):
		return kindConflict, http.StatusConflict
	default:
		return kindInternal, http.StatusInternalServerError
	}
}

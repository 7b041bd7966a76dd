package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/models"

	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.UserId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	if req.FromAccountId == "" && req.ToAccountId == "" {
		writeBadRequest(w, "at least one of from_account_id and to_account_id is required")
		return
	}

	receipt, err := s.engine.Execute(r.Context(), ledger.Request{
		UserId:         req.UserId,
		Type:           req.Type,
		Amount:         req.Amount,
		FromAccountId:  req.FromAccountId,
		ToAccountId:    req.ToAccountId,
		Description:    req.Description,
		Category:       req.Category,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeReceipt(w, receipt)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.UserId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	if req.PaymentMethod == "" {
		writeBadRequest(w, "payment_method is required")
		return
	}

	methodId := ""
	switch req.PaymentMethod {
	case models.PaymentMethodAccount:
		methodId = req.AccountId
	case models.PaymentMethodCard:
		methodId = req.CardId
	case models.PaymentMethodUPI:
		methodId = req.UpiId
	}

	receipt, err := s.engine.Execute(r.Context(), ledger.Request{
		UserId:         req.UserId,
		Type:           models.TransactionTypePayment,
		Amount:         req.Amount,
		Method:         req.PaymentMethod,
		MethodId:       methodId,
		Recipient:      req.Recipient,
		Description:    req.Description,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeReceipt(w, receipt)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	limit, offset := pagination(r)

	transactions, err := s.store.ListTransactions(r.Context(), userId, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]models.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		responses = append(responses, toTransactionResponse(&transactions[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]
	transaction, err := s.store.GetTransactionByReference(r.Context(), reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(transaction))
}

func (s *Server) handleReverseTransaction(w http.ResponseWriter, r *http.Request) {
	reference := mux.Vars(r)["reference"]

	var req models.ReverseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.UserId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	receipt, err := s.engine.Reverse(r.Context(), req.UserId, reference, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeReceipt(w, receipt)
}

// writeReceipt returns 201 for a freshly committed transaction and 200 for
// an idempotent replay of a previous one.
func writeReceipt(w http.ResponseWriter, receipt *ledger.Receipt) {
	status := http.StatusCreated
	if receipt.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toTransactionResponse(receipt.Transaction))
}

func toTransactionResponse(t *models.Transaction) models.TransactionResponse {
	return models.TransactionResponse{
		Id:            t.Id,
		ReferenceId:   t.ReferenceId,
		Amount:        t.Amount,
		Type:          t.Type,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		Description:   t.Description,
		Category:      t.Category,
		FromAccountId: t.FromAccountId,
		ToAccountId:   t.ToAccountId,
		BalanceAfter:  t.BalanceAfter,
		CreatedAt:     t.CreatedAt,
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

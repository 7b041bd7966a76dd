package api

import (
	"encoding/json"
	"net/http"

	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// handleOnboarding opens an account, creating the owner first when no
// user_id is supplied.
func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req models.OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.AccountKind == "" {
		writeBadRequest(w, "account_kind is required")
		return
	}

	userId := req.UserId
	if userId == "" {
		if req.Name == "" || req.Email == "" {
			writeBadRequest(w, "name and email are required for new users")
			return
		}
		hash := ""
		if req.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				writeError(w, err)
				return
			}
			hash = string(hashed)
		}
		user, err := s.store.CreateUser(r.Context(), req.Name, req.Email, req.Phone, hash)
		if err != nil {
			writeError(w, err)
			return
		}
		userId = user.Id
	} else if _, err := s.store.GetUserById(r.Context(), userId); err != nil {
		writeError(w, err)
		return
	}

	accountNumber, err := ledger.NewAccountNumber()
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := s.store.CreateAccount(r.Context(), store.CreateAccountParams{
		UserId:         userId,
		AccountNumber:  accountNumber,
		Kind:           req.AccountKind,
		Currency:       req.Currency,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.OnboardingResponse{
		UserId:  userId,
		Account: toAccountResponse(account),
	})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	accounts, err := s.store.GetUserAccounts(r.Context(), userId)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]models.AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, toAccountResponse(&accounts[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

// handleCloseAccount is a status transition, never a row deletion; the
// account and its history stay queryable.
func (s *Server) handleCloseAccount(w http.ResponseWriter, r *http.Request) {
	accountId := mux.Vars(r)["id"]
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	if err := s.store.CloseAccount(r.Context(), accountId, userId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	limit, _ := pagination(r)

	notifications, err := s.store.ListNotifications(r.Context(), userId, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func toAccountResponse(a *models.Account) models.AccountResponse {
	return models.AccountResponse{
		Id:            a.Id,
		AccountNumber: a.AccountNumber,
		Kind:          a.Kind,
		Balance:       a.Balance,
		Currency:      a.Currency,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
	}
}

package api

import (
	"encoding/json"
	"net/http"

	"nexbank-ledger-go/internal/cardutil"
	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"
)

func (s *Server) handleIssueCard(w http.ResponseWriter, r *http.Request) {
	var req models.IssueCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.UserId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}
	if req.Kind != models.CardKindDebit && req.Kind != models.CardKindCredit {
		writeBadRequest(w, "kind must be debit or credit")
		return
	}
	if _, err := s.store.GetUserById(r.Context(), req.UserId); err != nil {
		writeError(w, err)
		return
	}
	// A debit card may only link an account the requesting user owns.
	if req.Kind == models.CardKindDebit && req.AccountId != "" {
		if _, err := s.store.GetOwnedAccount(r.Context(), req.AccountId, req.UserId); err != nil {
			writeError(w, err)
			return
		}
	}

	number, err := cardutil.GenerateNumber("")
	if err != nil {
		writeError(w, err)
		return
	}

	card, err := s.store.CreateCard(r.Context(), store.CreateCardParams{
		UserId:         req.UserId,
		AccountId:      req.AccountId,
		CardNumber:     number,
		CardholderName: req.CardholderName,
		Kind:           req.Kind,
		CreditLimit:    req.CreditLimit,
		Expiry:         cardutil.Expiry(4),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(card))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	userId := r.URL.Query().Get("user_id")
	if userId == "" {
		writeBadRequest(w, "user_id is required")
		return
	}

	cards, err := s.store.GetUserCards(r.Context(), userId)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]models.CardResponse, 0, len(cards))
	for i := range cards {
		responses = append(responses, toCardResponse(&cards[i]))
	}
	writeJSON(w, http.StatusOK, responses)
}

func toCardResponse(c *models.Card) models.CardResponse {
	return models.CardResponse{
		Id:             c.Id,
		MaskedNumber:   cardutil.Mask(c.CardNumber),
		CardholderName: c.CardholderName,
		Kind:           c.Kind,
		CreditLimit:    c.CreditLimit,
		AvailableLimit: c.AvailableLimit,
		Expiry:         c.Expiry,
		Status:         c.Status,
	}
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanCard(row rowScanner) (*models.Card, error) {
	var card models.Card
	var creditLimit, availableLimit sql.NullString
	err := row.Scan(&card.Id, &card.UserId, &card.AccountId, &card.CardNumber,
		&card.CardholderName, &card.Kind, &creditLimit, &availableLimit,
		&card.Expiry, &card.Status, &card.Version, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if creditLimit.Valid {
		card.CreditLimit, err = decimal.NewFromString(creditLimit.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credit limit '%s': %w", creditLimit.String, err)
		}
	}
	if availableLimit.Valid {
		card.AvailableLimit, err = decimal.NewFromString(availableLimit.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse available limit '%s': %w", availableLimit.String, err)
		}
	}
	return &card, nil
}

func (s *Service) CreateCard(ctx context.Context, params store.CreateCardParams) (*models.Card, error) {
	if params.Kind == models.CardKindCredit && !params.CreditLimit.IsPositive() {
		return nil, fmt.Errorf("credit cards require a positive credit limit")
	}
	if params.Kind == models.CardKindDebit && params.AccountId == "" {
		return nil, store.ErrNoLinkedAccount
	}

	cardId := uuid.New().String()
	zap.L().Info("Issuing card",
		zap.String("id", cardId),
		zap.String("user_id", params.UserId),
		zap.String("kind", params.Kind))

	// Credit cards start with the full limit available. Debit cards carry no
	// limit columns at all.
	var creditLimit, availableLimit any
	if params.Kind == models.CardKindCredit {
		creditLimit = params.CreditLimit.String()
		availableLimit = params.CreditLimit.String()
	}

	_, err := s.db.ExecContext(ctx, queryInsertCard,
		cardId, params.UserId, params.AccountId, params.CardNumber,
		params.CardholderName, params.Kind, creditLimit, availableLimit, params.Expiry)
	if err != nil {
		zap.L().Error("Failed to insert card", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert card: %w", err)
	}

	return s.GetOwnedCard(ctx, cardId, params.UserId)
}

func (s *Service) GetOwnedCard(ctx context.Context, cardId, userId string) (*models.Card, error) {
	card, err := scanCard(s.db.QueryRowContext(ctx, queryGetOwnedCard, cardId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrCardNotFound, cardId)
		}
		return nil, fmt.Errorf("unable to query card: %w", err)
	}
	return card, nil
}

func (s *Service) GetUserCards(ctx context.Context, userId string) ([]models.Card, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserCards, userId)
	if err != nil {
		zap.L().Error("Failed to query cards", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query cards: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card rows: %w", err)
	}
	return cards, nil
}

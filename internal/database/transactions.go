package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ListTransactions returns the owner's transaction history, newest first.
func (s *Service) ListTransactions(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error) {
	zap.L().Debug("Listing transactions",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryListTransactions, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var transactions []models.Transaction
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *transaction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}

func (s *Service) GetTransactionByReference(ctx context.Context, referenceId string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryGetTransactionByReference, referenceId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, referenceId)
		}
		return nil, fmt.Errorf("failed to query transaction by reference: %w", err)
	}
	return transaction, nil
}

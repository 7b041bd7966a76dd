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

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var balanceStr, openingStr string
	err := row.Scan(&account.Id, &account.UserId, &account.AccountNumber, &account.Kind,
		&balanceStr, &openingStr, &account.Currency, &account.Status, &account.Version,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	account.OpeningBalance, err = decimal.NewFromString(openingStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse opening balance '%s': %w", openingStr, err)
	}
	return &account, nil
}

func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	if params.OpeningBalance.IsNegative() {
		return nil, store.ErrInvalidAmount
	}

	accountId := uuid.New().String()
	zap.L().Info("Creating account",
		zap.String("id", accountId),
		zap.String("user_id", params.UserId),
		zap.String("number", params.AccountNumber),
		zap.String("kind", params.Kind))

	_, err := s.db.ExecContext(ctx, queryInsertAccount,
		accountId, params.UserId, params.AccountNumber, params.Kind,
		params.OpeningBalance.String(), params.OpeningBalance.String(), params.Currency)
	if err != nil {
		zap.L().Error("Failed to insert account", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	return s.GetAccount(ctx, accountId)
}

func (s *Service) GetAccount(ctx context.Context, accountId string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccount, accountId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
		}
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

func (s *Service) GetOwnedAccount(ctx context.Context, accountId, userId string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetOwnedAccount, accountId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
		}
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

func (s *Service) GetUserAccounts(ctx context.Context, userId string) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryGetUserAccounts, userId)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			zap.L().Warn("Failed to close rows", zap.Error(err))
		}
	}(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return accounts, nil
}

// GetPrimaryAccount resolves the deterministic upi/wallet debit target: the
// owner's active account with the highest current balance.
func (s *Service) GetPrimaryAccount(ctx context.Context, userId string) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetPrimaryAccount, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active account for user %s", store.ErrAccountNotFound, userId)
		}
		return nil, fmt.Errorf("unable to query primary account: %w", err)
	}
	return account, nil
}

func (s *Service) CloseAccount(ctx context.Context, accountId, userId string) error {
	result, err := s.db.ExecContext(ctx, queryCloseAccount, accountId, userId)
	if err != nil {
		return fmt.Errorf("unable to close account: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}

	zap.L().Info("Account closed", zap.String("account_id", accountId), zap.String("user_id", userId))
	return nil
}

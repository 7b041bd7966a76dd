package database

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileAccount verifies that the materialized balance matches the signed
// sum of all completed transaction legs touching the account. A mismatch
// means the atomicity contract was violated somewhere and is reported loudly.
func (s *Service) ReconcileAccount(ctx context.Context, accountId string) error {
	account, err := s.GetAccount(ctx, accountId)
	if err != nil {
		return fmt.Errorf("failed to get account for reconciliation: %w", err)
	}

	var calculatedStr string
	err = s.db.QueryRowContext(ctx, queryReconcileAccount, accountId).Scan(&calculatedStr)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from transactions: %w", err)
	}

	calculated, err := decimal.NewFromString(calculatedStr)
	if err != nil {
		return fmt.Errorf("failed to parse calculated balance '%s': %w", calculatedStr, err)
	}

	// Accounts opened with a seeded balance have no transaction leg for the
	// opening amount: balance must equal opening_balance + sum(legs).
	expected := account.OpeningBalance.Add(calculated)
	if !account.Balance.Equal(expected) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("account_id", accountId),
			zap.String("current_balance", account.Balance.String()),
			zap.String("opening_balance", account.OpeningBalance.String()),
			zap.String("transaction_delta", calculated.String()),
			zap.String("difference", account.Balance.Sub(expected).String()))
		return fmt.Errorf("balance mismatch on account %s: current=%s, expected=%s",
			accountId, account.Balance.String(), expected.String())
	}

	zap.L().Debug("Balance reconciliation successful",
		zap.String("account_id", accountId),
		zap.String("balance", account.Balance.String()))
	return nil
}

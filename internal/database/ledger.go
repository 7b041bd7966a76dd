package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Apply executes one money movement as a single all-or-nothing unit: the
// debit leg, the credit leg, the transaction record and the notification
// outbox row commit together or not at all. Sufficiency is re-checked here,
// inside the transaction, so a stale resolver read can never double-spend;
// version conflicts abort the whole unit with ErrConcurrentModification and
// leave the ledger in its pre-request state.
func (s *Service) Apply(ctx context.Context, m store.Mutation) (*store.ApplyResult, error) {
	if !m.Amount.IsPositive() {
		return nil, store.ErrInvalidAmount
	}
	if m.DebitAccountId != "" && m.DebitCardId != "" {
		return nil, fmt.Errorf("mutation may debit an account or a card, not both")
	}

	zap.L().Debug("Applying ledger mutation",
		zap.String("user_id", m.UserId),
		zap.String("type", m.Type),
		zap.String("amount", m.Amount.String()),
		zap.String("reference_id", m.ReferenceId))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Idempotency: an existing (owner, key) pair short-circuits to the
	// original record with no second mutation.
	if m.IdempotencyKey != "" {
		existing, err := findByIdempotencyKeyTx(ctx, tx, m.UserId, m.IdempotencyKey)
		if err != nil && !errors.Is(err, store.ErrTransactionNotFound) {
			return nil, err
		}
		if existing != nil {
			zap.L().Info("Idempotency key already used - returning existing transaction",
				zap.String("idempotency_key", m.IdempotencyKey),
				zap.String("transaction_id", existing.Id))
			return &store.ApplyResult{Transaction: existing, Replayed: true}, nil
		}
	}

	result := &store.ApplyResult{}

	// Debit leg
	switch {
	case m.DebitAccountId != "":
		newBalance, err := debitAccountTx(ctx, tx, m.DebitAccountId, m.UserId, m.Amount)
		if err != nil {
			return nil, err
		}
		result.SourceBalance = newBalance
	case m.DebitCardId != "":
		remaining, err := debitCardTx(ctx, tx, m.DebitCardId, m.UserId, m.Amount)
		if err != nil {
			return nil, err
		}
		result.SourceBalance = remaining
	}

	// Credit legs
	if m.CreditAccountId != "" {
		newBalance, err := creditAccountTx(ctx, tx, m.CreditAccountId, m.Amount)
		if err != nil {
			return nil, err
		}
		result.DestinationBalance = newBalance
	}
	if m.CreditCardId != "" {
		restored, err := creditCardTx(ctx, tx, m.CreditCardId, m.UserId, m.Amount)
		if err != nil {
			return nil, err
		}
		result.DestinationBalance = restored
	}

	// The recorded balance tracks the debited source; credit-only mutations
	// (deposits, reversals) record the credited side instead.
	balanceAfter := result.SourceBalance
	if m.DebitAccountId == "" && m.DebitCardId == "" {
		balanceAfter = result.DestinationBalance
	}

	// A reversal that restores a card limit records the card on the
	// transaction row; the type distinguishes direction.
	cardLeg := m.DebitCardId
	if cardLeg == "" {
		cardLeg = m.CreditCardId
	}

	transaction := &models.Transaction{
		Id:             uuid.New().String(),
		ReferenceId:    m.ReferenceId,
		UserId:         m.UserId,
		FromAccountId:  m.DebitAccountId,
		CardId:         cardLeg,
		ToAccountId:    m.CreditAccountId,
		Amount:         m.Amount,
		Type:           m.Type,
		Status:         models.TransactionStatusCompleted,
		PaymentMethod:  m.PaymentMethod,
		Description:    m.Description,
		Category:       m.Category,
		BalanceAfter:   balanceAfter,
		IdempotencyKey: m.IdempotencyKey,
	}

	err = tx.QueryRowContext(ctx, queryInsertTransaction,
		transaction.Id, transaction.ReferenceId, transaction.UserId,
		transaction.FromAccountId, transaction.CardId, transaction.ToAccountId,
		transaction.Amount.String(), transaction.Type, transaction.Status,
		transaction.PaymentMethod, transaction.Description, transaction.Category,
		transaction.BalanceAfter.String(), transaction.IdempotencyKey).
		Scan(&transaction.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "reference_id") {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateReference, m.ReferenceId)
		}
		if isUniqueViolation(err, "idempotency_key") {
			// A concurrent request won the race for this key. Resolve to the
			// first writer's record after this transaction is rolled back.
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				return nil, rbErr
			}
			existing, findErr := s.FindByIdempotencyKey(ctx, m.UserId, m.IdempotencyKey)
			if findErr != nil {
				return nil, findErr
			}
			return &store.ApplyResult{Transaction: existing, Replayed: true}, nil
		}
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	// Notification + outbox row, same commit (transactional outbox).
	if m.Notification != nil {
		notificationId := uuid.New().String()
		_, err = tx.ExecContext(ctx, queryInsertNotification,
			notificationId, m.UserId, m.Notification.Title, m.Notification.Message, m.Notification.Type)
		if err != nil {
			return nil, fmt.Errorf("failed to insert notification: %w", err)
		}
		_, err = tx.ExecContext(ctx, queryInsertOutboxJob, uuid.New().String(), notificationId, "email")
		if err != nil {
			return nil, fmt.Errorf("failed to insert outbox job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Ledger mutation committed",
		zap.String("transaction_id", transaction.Id),
		zap.String("reference_id", transaction.ReferenceId),
		zap.String("user_id", m.UserId),
		zap.String("type", m.Type),
		zap.String("amount", m.Amount.String()),
		zap.String("balance_after", balanceAfter.String()))

	result.Transaction = transaction
	return result, nil
}

// debitAccountTx re-validates ownership, status and sufficiency inside the
// transaction, then applies the version-conditioned decrement.
func debitAccountTx(ctx context.Context, tx *sql.Tx, accountId, userId string, amount decimal.Decimal) (decimal.Decimal, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx, queryGetOwnedAccount, accountId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
		}
		return decimal.Zero, fmt.Errorf("failed to read source account: %w", err)
	}
	if account.Status != models.AccountStatusActive {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountInactive, accountId)
	}
	if account.Balance.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: balance=%s, requested=%s",
			store.ErrInsufficientFunds, account.Balance.String(), amount.String())
	}

	newBalance := account.Balance.Sub(amount)
	if err := casUpdate(ctx, tx, queryUpdateAccountBalance, newBalance.String(), account.Id, account.Version); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// creditAccountTx applies the version-conditioned increment. The destination
// must exist and be active; crediting a closed or blocked account fails the
// whole unit.
func creditAccountTx(ctx context.Context, tx *sql.Tx, accountId string, amount decimal.Decimal) (decimal.Decimal, error) {
	account, err := scanAccount(tx.QueryRowContext(ctx, queryGetAccount, accountId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
		}
		return decimal.Zero, fmt.Errorf("failed to read destination account: %w", err)
	}
	if account.Status != models.AccountStatusActive {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrAccountInactive, accountId)
	}

	newBalance := account.Balance.Add(amount)
	if err := casUpdate(ctx, tx, queryUpdateAccountBalance, newBalance.String(), account.Id, account.Version); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

// debitCardTx reduces a credit card's available limit by exactly the
// purchase amount, version-conditioned.
func debitCardTx(ctx context.Context, tx *sql.Tx, cardId, userId string, amount decimal.Decimal) (decimal.Decimal, error) {
	card, err := scanCard(tx.QueryRowContext(ctx, queryGetOwnedCard, cardId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", store.ErrCardNotFound, cardId)
		}
		return decimal.Zero, fmt.Errorf("failed to read card: %w", err)
	}
	if card.Status != models.CardStatusActive {
		return decimal.Zero, fmt.Errorf("%w: %s", store.ErrCardInactive, cardId)
	}
	if card.AvailableLimit.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("%w: available=%s, requested=%s",
			store.ErrInsufficientCredit, card.AvailableLimit.String(), amount.String())
	}

	remaining := card.AvailableLimit.Sub(amount)
	if err := casUpdate(ctx, tx, queryUpdateCardLimit, remaining.String(), card.Id, card.Version); err != nil {
		return decimal.Zero, err
	}
	return remaining, nil
}

// creditCardTx restores available limit on reversal. The restored limit can
// never exceed the card's credit limit.
func creditCardTx(ctx context.Context, tx *sql.Tx, cardId, userId string, amount decimal.Decimal) (decimal.Decimal, error) {
	card, err := scanCard(tx.QueryRowContext(ctx, queryGetOwnedCard, cardId, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%w: %s", store.ErrCardNotFound, cardId)
		}
		return decimal.Zero, fmt.Errorf("failed to read card: %w", err)
	}

	restored := card.AvailableLimit.Add(amount)
	if restored.GreaterThan(card.CreditLimit) {
		return decimal.Zero, fmt.Errorf("restoring %s would exceed credit limit %s on card %s",
			amount.String(), card.CreditLimit.String(), cardId)
	}
	if err := casUpdate(ctx, tx, queryUpdateCardLimit, restored.String(), card.Id, card.Version); err != nil {
		return decimal.Zero, err
	}
	return restored, nil
}

func casUpdate(ctx context.Context, tx *sql.Tx, query, newValue, id string, version int64) error {
	result, err := tx.ExecContext(ctx, query, newValue, id, version)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return store.ErrConcurrentModification
	}
	return nil
}

func isUniqueViolation(err error, column string) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var transaction models.Transaction
	var amountStr, balanceAfterStr string
	err := row.Scan(&transaction.Id, &transaction.ReferenceId, &transaction.UserId,
		&transaction.FromAccountId, &transaction.CardId, &transaction.ToAccountId,
		&amountStr, &transaction.Type, &transaction.Status, &transaction.PaymentMethod,
		&transaction.Description, &transaction.Category, &balanceAfterStr,
		&transaction.IdempotencyKey, &transaction.CreatedAt)
	if err != nil {
		return nil, err
	}

	transaction.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
	}
	transaction.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance_after '%s': %w", balanceAfterStr, err)
	}
	return &transaction, nil
}

func findByIdempotencyKeyTx(ctx context.Context, tx *sql.Tx, userId, key string) (*models.Transaction, error) {
	transaction, err := scanTransaction(tx.QueryRowContext(ctx, queryFindByIdempotencyKey, userId, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return transaction, nil
}

func (s *Service) FindByIdempotencyKey(ctx context.Context, userId, key string) (*models.Transaction, error) {
	transaction, err := scanTransaction(s.db.QueryRowContext(ctx, queryFindByIdempotencyKey, userId, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return transaction, nil
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account statuses. Accounts are never deleted; closing an account is a
// status transition.
const (
	AccountStatusActive  = "active"
	AccountStatusBlocked = "blocked"
	AccountStatusClosed  = "closed"
)

// Account kinds
const (
	AccountKindChecking = "checking"
	AccountKindSavings  = "savings"
	AccountKindCurrent  = "current"
)

// Card kinds and statuses
const (
	CardKindDebit  = "debit"
	CardKindCredit = "credit"

	CardStatusActive  = "active"
	CardStatusBlocked = "blocked"
	CardStatusExpired = "expired"
)

// Transaction types and statuses
const (
	TransactionTypeTransfer   = "transfer"
	TransactionTypeDeposit    = "deposit"
	TransactionTypeWithdrawal = "withdrawal"
	TransactionTypePayment    = "payment"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Payment methods accepted by the funding source resolver
const (
	PaymentMethodAccount = "account"
	PaymentMethodCard    = "card"
	PaymentMethodUPI     = "upi"
	PaymentMethodWallet  = "wallet"
)

// User represents an account owner
type User struct {
	Id           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Account represents current balance state (hot data). The balance is
// mutated only through the ledger engine's atomic commit; the version column
// backs optimistic locking.
type Account struct {
	Id             string          `db:"id"`
	UserId         string          `db:"user_id"`
	AccountNumber  string          `db:"account_number"`
	Kind           string          `db:"kind"`
	Balance        decimal.Decimal `db:"balance"`
	OpeningBalance decimal.Decimal `db:"opening_balance"`
	Currency       string          `db:"currency"`
	Status         string          `db:"status"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Card represents a payment card. Debit cards draw from the linked account;
// credit cards carry their own limit. AvailableLimit never exceeds
// CreditLimit and never goes below zero.
type Card struct {
	Id             string          `db:"id"`
	UserId         string          `db:"user_id"`
	AccountId      string          `db:"account_id"`
	CardNumber     string          `db:"card_number"`
	CardholderName string          `db:"cardholder_name"`
	Kind           string          `db:"kind"`
	CreditLimit    decimal.Decimal `db:"credit_limit"`
	AvailableLimit decimal.Decimal `db:"available_limit"`
	Expiry         string          `db:"expiry"`
	Status         string          `db:"status"`
	Version        int64           `db:"version"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Transaction represents immutable transaction history (cold data). Once the
// status is terminal the row can never be updated or deleted; reversals are
// new superseding records.
type Transaction struct {
	Id             string          `db:"id"`
	ReferenceId    string          `db:"reference_id"`
	UserId         string          `db:"user_id"`
	FromAccountId  string          `db:"from_account_id"`
	CardId         string          `db:"card_id"`
	ToAccountId    string          `db:"to_account_id"`
	Amount         decimal.Decimal `db:"amount"`
	Type           string          `db:"type"`
	Status         string          `db:"status"`
	PaymentMethod  string          `db:"payment_method"`
	Description    string          `db:"description"`
	Category       string          `db:"category"`
	BalanceAfter   decimal.Decimal `db:"balance_after"`
	IdempotencyKey string          `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
}

// Notification is a user-facing message recorded in the same commit as the
// transaction that produced it.
type Notification struct {
	Id        string    `db:"id"`
	UserId    string    `db:"user_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Type      string    `db:"type"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}

// OutboxJob is a pending notification delivery. Jobs are drained
// asynchronously; delivery failure never affects the committed transaction.
type OutboxJob struct {
	Id             string    `db:"id"`
	NotificationId string    `db:"notification_id"`
	Channel        string    `db:"channel"`
	Status         string    `db:"status"`
	Attempts       int       `db:"attempts"`
	NextAttemptAt  time.Time `db:"next_attempt_at"`
	CreatedAt      time.Time `db:"created_at"`
}

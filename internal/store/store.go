package store

import (
	"context"
	"errors"

	"nexbank-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations. These form the
// machine-readable failure taxonomy surfaced to API callers.
var (
	ErrInvalidAmount          = errors.New("amount must be a positive value")
	ErrAccountNotFound        = errors.New("account not found")
	ErrCardNotFound           = errors.New("card not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrAccountInactive        = errors.New("account is not active")
	ErrCardInactive           = errors.New("card is not active")
	ErrInsufficientFunds      = errors.New("insufficient balance")
	ErrInsufficientCredit     = errors.New("insufficient credit limit")
	ErrWalletLimitExceeded    = errors.New("wallet per-transaction limit exceeded")
	ErrNoLinkedAccount        = errors.New("no account linked to debit card")
	ErrUnsupportedMethod      = errors.New("unsupported payment method")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateReference     = errors.New("duplicate transaction reference")
	ErrTransactionNotFound    = errors.New("transaction not found")
)

// Mutation describes one money movement to be applied as a single atomic
// unit: every populated leg, the transaction record, and the optional
// notification commit together or not at all.
//
// At most one of DebitAccountId/DebitCardId may be set; CreditCardId exists
// for reversals that restore a credit card's available limit.
type Mutation struct {
	UserId          string
	Type            string
	PaymentMethod   string
	Amount          decimal.Decimal // always positive
	DebitAccountId  string
	DebitCardId     string
	CreditAccountId string
	CreditCardId    string
	ReferenceId     string
	IdempotencyKey  string
	Description     string
	Category        string
	Notification    *NotificationParams
}

// NotificationParams is the user-facing message written in the same commit
// as the transaction record.
type NotificationParams struct {
	Title   string
	Message string
	Type    string
}

// ApplyResult reports the committed transaction and the post-commit balances
// of the affected entities.
type ApplyResult struct {
	Transaction *models.Transaction
	// SourceBalance is the debited account's balance after commit, or the
	// debited card's remaining available limit.
	SourceBalance decimal.Decimal
	// DestinationBalance is the credited account's balance after commit.
	// Zero value when no credit leg exists.
	DestinationBalance decimal.Decimal
	// Replayed is true when the mutation was not applied because a
	// transaction with the same idempotency key already exists; Transaction
	// then holds the original record.
	Replayed bool
}

// CreateAccountParams contains the parameters for opening an account.
type CreateAccountParams struct {
	UserId         string
	AccountNumber  string
	Kind           string
	Currency       string
	OpeningBalance decimal.Decimal
}

// CreateCardParams contains the parameters for issuing a card.
type CreateCardParams struct {
	UserId         string
	AccountId      string
	CardNumber     string
	CardholderName string
	Kind           string
	CreditLimit    decimal.Decimal
	Expiry         string
}

// LedgerStore defines the contract the ledger engine and API surface depend
// on. The SQLite backend in internal/database is the only implementation;
// the interface keeps the engine testable and the storage swappable.
type LedgerStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, name, email, phone, passwordHash string) (*models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)

	// --- Accounts ---
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, accountId string) (*models.Account, error)
	GetOwnedAccount(ctx context.Context, accountId, userId string) (*models.Account, error)
	GetUserAccounts(ctx context.Context, userId string) ([]models.Account, error)
	// GetPrimaryAccount resolves the owner's designated debit target for
	// upi/wallet payments: the active account with the highest balance.
	GetPrimaryAccount(ctx context.Context, userId string) (*models.Account, error)
	CloseAccount(ctx context.Context, accountId, userId string) error

	// --- Cards ---
	CreateCard(ctx context.Context, params CreateCardParams) (*models.Card, error)
	GetOwnedCard(ctx context.Context, cardId, userId string) (*models.Card, error)
	GetUserCards(ctx context.Context, userId string) ([]models.Card, error)

	// --- Ledger ---
	// Apply executes one money movement as a single all-or-nothing unit.
	// Validation failures and version conflicts leave no partial state.
	Apply(ctx context.Context, m Mutation) (*ApplyResult, error)
	FindByIdempotencyKey(ctx context.Context, userId, key string) (*models.Transaction, error)
	GetTransactionByReference(ctx context.Context, referenceId string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userId string, limit, offset int) ([]models.Transaction, error)
	// ReconcileAccount verifies the materialized balance against the sum of
	// committed transaction legs.
	ReconcileAccount(ctx context.Context, accountId string) error

	// --- Notifications ---
	ListNotifications(ctx context.Context, userId string, limit int) ([]models.Notification, error)
	ClaimOutboxJob(ctx context.Context) (*models.OutboxJob, *models.Notification, error)
	MarkOutboxJob(ctx context.Context, jobId, status string, attempts int) error

	// --- Lifecycle ---
	Close()
}

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"nexbank-ledger-go/internal/database"
	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func testLedgerConfig() models.LedgerConfig {
	return models.LedgerConfig{
		WalletTxLimit:   decimal.NewFromInt(5000),
		MaxRetries:      3,
		RetryBaseDelay:  time.Millisecond,
		DefaultCurrency: "INR",
	}
}

func setupTestEngine(t *testing.T) (*Engine, *database.Service) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "engine_test.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	service := database.NewServiceFromDB(db)
	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	return NewEngine(service, testLedgerConfig()), service
}

func seedUserWithAccount(t *testing.T, s *database.Service, email, balance string) (*models.User, *models.Account) {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, "Test User", email, "", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	number, err := NewAccountNumber()
	if err != nil {
		t.Fatalf("NewAccountNumber failed: %v", err)
	}
	account, err := s.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		AccountNumber:  number,
		Kind:           models.AccountKindChecking,
		Currency:       "INR",
		OpeningBalance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	return user, account
}

func TestExecutePaymentFromAccount(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "payer@example.com", "500")

	receipt, err := engine.Execute(ctx, Request{
		UserId:    user.Id,
		Amount:    decimal.NewFromInt(120),
		Method:    models.PaymentMethodAccount,
		MethodId:  account.Id,
		Recipient: "Electric Co",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !receipt.SourceBalance.Equal(decimal.NewFromInt(380)) {
		t.Errorf("expected source balance 380, got %s", receipt.SourceBalance.String())
	}
	if receipt.Transaction.Type != models.TransactionTypePayment {
		t.Errorf("expected payment type, got %s", receipt.Transaction.Type)
	}
	if !strings.HasPrefix(receipt.Transaction.ReferenceId, RefPrefixPayment) {
		t.Errorf("expected %s reference, got %s", RefPrefixPayment, receipt.Transaction.ReferenceId)
	}

	// The success notification is written with the transaction.
	notifications, err := service.ListNotifications(ctx, user.Id, 10)
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(notifications) != 1 || notifications[0].Title != "Payment Successful" {
		t.Fatalf("expected payment notification, got %+v", notifications)
	}
}

func TestExecuteTransferUsesTransferReference(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, source := seedUserWithAccount(t, service, "sender@example.com", "300")
	_, dest := seedUserWithAccount(t, service, "receiver@example.com", "0")

	receipt, err := engine.Execute(ctx, Request{
		UserId:        user.Id,
		Amount:        decimal.NewFromInt(50),
		FromAccountId: source.Id,
		ToAccountId:   dest.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if receipt.Transaction.Type != models.TransactionTypeTransfer {
		t.Errorf("expected transfer type, got %s", receipt.Transaction.Type)
	}
	if !strings.HasPrefix(receipt.Transaction.ReferenceId, RefPrefixTransaction) {
		t.Errorf("expected %s reference, got %s", RefPrefixTransaction, receipt.Transaction.ReferenceId)
	}
	if !receipt.DestinationBalance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected destination 50, got %s", receipt.DestinationBalance.String())
	}
}

func TestExecuteRejectsNonPositiveAmount(t *testing.T) {
	engine, service := setupTestEngine(t)
	user, account := seedUserWithAccount(t, service, "zero@example.com", "100")

	_, err := engine.Execute(context.Background(), Request{
		UserId:   user.Id,
		Amount:   decimal.Zero,
		Method:   models.PaymentMethodAccount,
		MethodId: account.Id,
	})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestExecuteWalletCeiling(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	// Plenty of balance: the wallet ceiling binds regardless.
	user, _ := seedUserWithAccount(t, service, "wallet@example.com", "100000")

	_, err := engine.Execute(ctx, Request{
		UserId: user.Id,
		Amount: decimal.NewFromInt(5001),
		Method: models.PaymentMethodWallet,
	})
	if !errors.Is(err, store.ErrWalletLimitExceeded) {
		t.Fatalf("expected ErrWalletLimitExceeded, got %v", err)
	}

	// At the ceiling the payment goes through.
	receipt, err := engine.Execute(ctx, Request{
		UserId: user.Id,
		Amount: decimal.NewFromInt(5000),
		Method: models.PaymentMethodWallet,
	})
	if err != nil {
		t.Fatalf("Execute at ceiling failed: %v", err)
	}
	if !receipt.SourceBalance.Equal(decimal.NewFromInt(95000)) {
		t.Errorf("expected balance 95000, got %s", receipt.SourceBalance.String())
	}
}

func TestExecuteUpiDebitsPrimaryAccount(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, _ := seedUserWithAccount(t, service, "upi@example.com", "100")

	// Add a second, richer account; upi must pick it.
	number, _ := NewAccountNumber()
	richer, err := service.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		AccountNumber:  number,
		Kind:           models.AccountKindSavings,
		Currency:       "INR",
		OpeningBalance: decimal.NewFromInt(1000),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	receipt, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(200),
		Method:   models.PaymentMethodUPI,
		MethodId: "merchant@upi",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if receipt.Transaction.FromAccountId != richer.Id {
		t.Errorf("expected debit from highest-balance account %s, got %s",
			richer.Id, receipt.Transaction.FromAccountId)
	}
}

func TestExecuteUnsupportedMethod(t *testing.T) {
	engine, service := setupTestEngine(t)
	user, _ := seedUserWithAccount(t, service, "method@example.com", "100")

	_, err := engine.Execute(context.Background(), Request{
		UserId: user.Id,
		Amount: decimal.NewFromInt(10),
		Method: "cheque",
	})
	if !errors.Is(err, store.ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestExecuteIdempotentReplay(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "replay@example.com", "500")

	req := Request{
		UserId:         user.Id,
		Amount:         decimal.NewFromInt(100),
		Method:         models.PaymentMethodAccount,
		MethodId:       account.Id,
		IdempotencyKey: "checkout-77",
	}

	first, err := engine.Execute(ctx, req)
	if err != nil {
		t.Fatalf("first Execute failed: %v", err)
	}
	second, err := engine.Execute(ctx, req)
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}

	if !second.Replayed {
		t.Fatal("expected second execution to replay")
	}
	if second.Transaction.ReferenceId != first.Transaction.ReferenceId {
		t.Errorf("replay must return the original record")
	}

	reloaded, err := service.GetAccount(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected a single debit (400), got %s", reloaded.Balance.String())
	}
}

func TestExecuteCreditCardPayment(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, _ := seedUserWithAccount(t, service, "cc@example.com", "0")

	card, err := service.CreateCard(ctx, store.CreateCardParams{
		UserId:         user.Id,
		CardNumber:     "4000000000000400",
		CardholderName: "Test User",
		Kind:           models.CardKindCredit,
		CreditLimit:    decimal.NewFromInt(1000),
		Expiry:         "12/29",
	})
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}

	receipt, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(400),
		Method:   models.PaymentMethodCard,
		MethodId: card.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if receipt.Transaction.CardId != card.Id {
		t.Errorf("expected card leg recorded")
	}
	if !receipt.SourceBalance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("expected remaining limit 600, got %s", receipt.SourceBalance.String())
	}

	// Over the remaining limit: refused, limit unchanged.
	_, err = engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(700),
		Method:   models.PaymentMethodCard,
		MethodId: card.Id,
	})
	if !errors.Is(err, store.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}
}

func TestExecuteDebitCardUsesLinkedAccount(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "debitcard@example.com", "250")

	card, err := service.CreateCard(ctx, store.CreateCardParams{
		UserId:     user.Id,
		AccountId:  account.Id,
		CardNumber: "4000000000000500",
		Kind:       models.CardKindDebit,
	})
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}

	receipt, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(50),
		Method:   models.PaymentMethodCard,
		MethodId: card.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if receipt.Transaction.FromAccountId != account.Id {
		t.Errorf("debit card payment must debit the linked account")
	}
	if !receipt.SourceBalance.Equal(decimal.NewFromInt(200)) {
		t.Errorf("expected balance 200, got %s", receipt.SourceBalance.String())
	}
}

func TestReverseRestoresCardLimit(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, _ := seedUserWithAccount(t, service, "reverse@example.com", "0")

	card, err := service.CreateCard(ctx, store.CreateCardParams{
		UserId:         user.Id,
		CardNumber:     "4000000000000600",
		CardholderName: "Test User",
		Kind:           models.CardKindCredit,
		CreditLimit:    decimal.NewFromInt(1000),
		Expiry:         "12/29",
	})
	if err != nil {
		t.Fatalf("CreateCard failed: %v", err)
	}

	payment, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(300),
		Method:   models.PaymentMethodCard,
		MethodId: card.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	reversal, err := engine.Reverse(ctx, user.Id, payment.Transaction.ReferenceId, "customer dispute")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if reversal.Replayed {
		t.Fatal("first reversal must not be a replay")
	}
	if !reversal.DestinationBalance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected restored limit 1000, got %s", reversal.DestinationBalance.String())
	}
	if reversal.Transaction.Category != CategoryReversal {
		t.Errorf("expected reversal category, got %s", reversal.Transaction.Category)
	}

	// The original record is untouched; the reversal is a new record.
	original, err := service.GetTransactionByReference(ctx, payment.Transaction.ReferenceId)
	if err != nil {
		t.Fatalf("GetTransactionByReference failed: %v", err)
	}
	if original.Status != models.TransactionStatusCompleted {
		t.Errorf("original record must stay completed")
	}

	// Reversing again replays the first reversal instead of double-crediting.
	again, err := engine.Reverse(ctx, user.Id, payment.Transaction.ReferenceId, "retry")
	if err != nil {
		t.Fatalf("second Reverse failed: %v", err)
	}
	if !again.Replayed {
		t.Fatal("expected second reversal to replay")
	}

	reloaded, err := service.GetOwnedCard(ctx, card.Id, user.Id)
	if err != nil {
		t.Fatalf("GetOwnedCard failed: %v", err)
	}
	if !reloaded.AvailableLimit.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("double reversal inflated the limit: %s", reloaded.AvailableLimit.String())
	}
}

func TestReverseAccountPaymentRestoresBalance(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "refund@example.com", "500")

	payment, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(200),
		Method:   models.PaymentMethodAccount,
		MethodId: account.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := engine.Reverse(ctx, user.Id, payment.Transaction.ReferenceId, ""); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}

	reloaded, err := service.GetAccount(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected balance restored to 500, got %s", reloaded.Balance.String())
	}
	if err := service.ReconcileAccount(ctx, account.Id); err != nil {
		t.Errorf("reconciliation failed after reversal: %v", err)
	}
}

func TestReverseRejectsTransfers(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, source := seedUserWithAccount(t, service, "norev@example.com", "100")
	_, dest := seedUserWithAccount(t, service, "norev2@example.com", "0")

	transfer, err := engine.Execute(ctx, Request{
		UserId:        user.Id,
		Amount:        decimal.NewFromInt(10),
		FromAccountId: source.Id,
		ToAccountId:   dest.Id,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if _, err := engine.Reverse(ctx, user.Id, transfer.Transaction.ReferenceId, ""); err == nil {
		t.Fatal("expected transfer reversal to be rejected")
	}
}

func TestReverseUnknownReference(t *testing.T) {
	engine, service := setupTestEngine(t)
	user, _ := seedUserWithAccount(t, service, "unknown@example.com", "100")

	_, err := engine.Reverse(context.Background(), user.Id, "TXNMISSING", "")
	if !errors.Is(err, store.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}

func TestConcurrentExecutesSettleToFloorDivision(t *testing.T) {
	engine, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "floor@example.com", "100")

	// Ten debits of 30 against 100: exactly floor(100/30) = 3 can land.
	// The engine retries conflicts and re-validates each attempt, so every
	// loser must surface as insufficient funds, never as a conflict.
	const workers = 10
	var (
		mu           sync.Mutex
		successes    int
		insufficient int
		unexpected   []error
	)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Execute(ctx, Request{
				UserId:   user.Id,
				Amount:   decimal.NewFromInt(30),
				Method:   models.PaymentMethodAccount,
				MethodId: account.Id,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, store.ErrInsufficientFunds):
				insufficient++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	if successes != 3 || insufficient != 7 {
		t.Errorf("expected 3 successes and 7 insufficient-funds failures, got %d and %d",
			successes, insufficient)
	}
	if len(unexpected) != 0 {
		t.Errorf("unexpected failure kinds: %v", unexpected)
	}

	reloaded, err := service.GetAccount(ctx, account.Id)
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if !reloaded.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected final balance 10, got %s", reloaded.Balance.String())
	}
	if err := service.ReconcileAccount(ctx, account.Id); err != nil {
		t.Errorf("reconciliation failed after concurrent debits: %v", err)
	}
}

// flakyStore forces a fixed number of conflict errors before delegating to
// the real store, to exercise the engine's retry loop.
type flakyStore struct {
	store.LedgerStore
	failures int
}

func (f *flakyStore) Apply(ctx context.Context, m store.Mutation) (*store.ApplyResult, error) {
	if f.failures > 0 {
		f.failures--
		return nil, store.ErrConcurrentModification
	}
	return f.LedgerStore.Apply(ctx, m)
}

func TestExecuteRetriesOnConflict(t *testing.T) {
	_, service := setupTestEngine(t)
	ctx := context.Background()
	user, account := seedUserWithAccount(t, service, "retry@example.com", "100")

	flaky := &flakyStore{LedgerStore: service, failures: 2}
	engine := NewEngine(flaky, testLedgerConfig())

	receipt, err := engine.Execute(ctx, Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(10),
		Method:   models.PaymentMethodAccount,
		MethodId: account.Id,
	})
	if err != nil {
		t.Fatalf("expected retries to absorb 2 conflicts: %v", err)
	}
	if !receipt.SourceBalance.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected balance 90, got %s", receipt.SourceBalance.String())
	}
}

func TestExecuteGivesUpAfterMaxRetries(t *testing.T) {
	_, service := setupTestEngine(t)
	user, account := seedUserWithAccount(t, service, "giveup@example.com", "100")

	flaky := &flakyStore{LedgerStore: service, failures: 100}
	engine := NewEngine(flaky, testLedgerConfig())

	_, err := engine.Execute(context.Background(), Request{
		UserId:   user.Id,
		Amount:   decimal.NewFromInt(10),
		Method:   models.PaymentMethodAccount,
		MethodId: account.Id,
	})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification after exhausting retries, got %v", err)
	}
	if flaky.failures != 100-(testLedgerConfig().MaxRetries+1) {
		t.Errorf("expected exactly %d attempts", testLedgerConfig().MaxRetries+1)
	}
}

package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// setupTestDB opens a file-backed database in a temp directory. A file (not
// :memory:) is required because the concurrency tests drive real parallel
// connections from the pool.
func setupTestDB(t *testing.T) *Service {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ledger_test.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := NewServiceFromDB(db)
	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return service
}

func createTestUser(t *testing.T, s *Service, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), "Test User", email, "", "")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func createTestAccount(t *testing.T, s *Service, userId, number, balance string) *models.Account {
	t.Helper()
	opening, err := decimal.NewFromString(balance)
	if err != nil {
		t.Fatalf("Invalid test balance %q: %v", balance, err)
	}
	account, err := s.CreateAccount(context.Background(), store.CreateAccountParams{
		UserId:         userId,
		AccountNumber:  number,
		Kind:           models.AccountKindChecking,
		Currency:       "INR",
		OpeningBalance: opening,
	})
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
	return account
}

func createTestCreditCard(t *testing.T, s *Service, userId, number, limit string) *models.Card {
	t.Helper()
	creditLimit, err := decimal.NewFromString(limit)
	if err != nil {
		t.Fatalf("Invalid test limit %q: %v", limit, err)
	}
	card, err := s.CreateCard(context.Background(), store.CreateCardParams{
		UserId:         userId,
		CardNumber:     number,
		CardholderName: "Test User",
		Kind:           models.CardKindCredit,
		CreditLimit:    creditLimit,
		Expiry:         "12/29",
	})
	if err != nil {
		t.Fatalf("Failed to create test card: %v", err)
	}
	return card
}

func TestNewServiceValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(ctx, models.DatabaseConfig{})
	if err == nil {
		t.Fatal("expected error for empty config")
	}

	_, err = NewService(ctx, models.DatabaseConfig{Path: "x.db", MaxOpenConns: -1})
	if err == nil {
		t.Fatal("expected error for negative max open conns")
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	if err := s.InitSchema(); err != nil {
		t.Fatalf("second InitSchema failed: %v", err)
	}
}

package notify

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"nexbank-ledger-go/internal/database"
	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupOutbox(t *testing.T) (*database.Service, *models.User) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "notify_test.db")
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

	user, err := service.CreateUser(ctx, "Notify User", "notify@example.com", "", "")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	account, err := service.CreateAccount(ctx, store.CreateAccountParams{
		UserId:         user.Id,
		AccountNumber:  "NXB-NOTIFY",
		Kind:           models.AccountKindChecking,
		Currency:       "INR",
		OpeningBalance: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	_, err = service.Apply(ctx, store.Mutation{
		UserId:         user.Id,
		Type:           models.TransactionTypePayment,
		Amount:         decimal.NewFromInt(10),
		DebitAccountId: account.Id,
		ReferenceId:    "TXN-NOTIFY-1",
		Notification: &store.NotificationParams{
			Title:   "Payment Successful",
			Message: "You paid ₹10 to shop via account.",
			Type:    "transaction",
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return service, user
}

type recordingSender struct {
	recipients []string
	err        error
}

func (r *recordingSender) Send(n *models.Notification, recipient string) error {
	r.recipients = append(r.recipients, recipient)
	return r.err
}

func TestDrainDeliversAndMarksSent(t *testing.T) {
	service, _ := setupOutbox(t)
	ctx := context.Background()

	sender := &recordingSender{}
	dispatcher := NewDispatcher(service, sender, models.NotifyConfig{
		PollInterval: time.Millisecond,
		MaxAttempts:  3,
	})

	dispatcher.Drain(ctx)

	if len(sender.recipients) != 1 || sender.recipients[0] != "notify@example.com" {
		t.Fatalf("expected delivery to the owner's email, got %v", sender.recipients)
	}

	// The job is gone from the outbox once sent.
	job, _, err := service.ClaimOutboxJob(ctx)
	if err != nil {
		t.Fatalf("ClaimOutboxJob failed: %v", err)
	}
	if job != nil {
		t.Error("expected outbox to be empty after delivery")
	}
}

func TestDrainWithoutSenderLogsAndMarksSent(t *testing.T) {
	service, _ := setupOutbox(t)
	ctx := context.Background()

	dispatcher := NewDispatcher(service, nil, models.NotifyConfig{MaxAttempts: 3})
	dispatcher.Drain(ctx)

	job, _, err := service.ClaimOutboxJob(ctx)
	if err != nil {
		t.Fatalf("ClaimOutboxJob failed: %v", err)
	}
	if job != nil {
		t.Error("log-only delivery should still drain the outbox")
	}
}

func TestFailedDeliveryBacksOff(t *testing.T) {
	service, _ := setupOutbox(t)
	ctx := context.Background()

	sender := &recordingSender{err: errors.New("smtp down")}
	dispatcher := NewDispatcher(service, sender, models.NotifyConfig{MaxAttempts: 3})

	dispatcher.Drain(ctx)
	if len(sender.recipients) != 1 {
		t.Fatalf("expected exactly one attempt, got %d", len(sender.recipients))
	}

	// The failed job is parked behind next_attempt_at, so an immediate
	// second drain must not retry it.
	dispatcher.Drain(ctx)
	if len(sender.recipients) != 1 {
		t.Errorf("expected backoff to defer the retry, got %d attempts", len(sender.recipients))
	}
}

func TestDeliveryFailuresEventuallyPark(t *testing.T) {
	service, _ := setupOutbox(t)
	ctx := context.Background()

	sender := &recordingSender{err: errors.New("smtp down")}
	dispatcher := NewDispatcher(service, sender, models.NotifyConfig{MaxAttempts: 1})

	dispatcher.Drain(ctx)

	// MaxAttempts reached on the first failure: the job is failed, not
	// pending, and never claimed again.
	job, _, err := service.ClaimOutboxJob(ctx)
	if err != nil {
		t.Fatalf("ClaimOutboxJob failed: %v", err)
	}
	if job != nil {
		t.Error("expected job to be parked as failed")
	}
}

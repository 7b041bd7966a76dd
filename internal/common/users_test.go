package common

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"nexbank-ledger-go/internal/database"

	_ "github.com/mattn/go-sqlite3"
)

func TestSelectUsers(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "users_test.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	defer db.Close()
	service := database.NewServiceFromDB(db)
	if err := service.InitSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	for _, email := range []string{"one@example.com", "two@example.com"} {
		if _, err := service.CreateUser(ctx, "Report User", email, "", ""); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	all, err := SelectUsers(ctx, service, "")
	if err != nil {
		t.Fatalf("SelectUsers failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected all 2 users, got %d", len(all))
	}

	one, err := SelectUsers(ctx, service, "one@example.com")
	if err != nil {
		t.Fatalf("SelectUsers with filter failed: %v", err)
	}
	if len(one) != 1 || one[0].Email != "one@example.com" {
		t.Fatalf("expected only the filtered user, got %+v", one)
	}

	if _, err := SelectUsers(ctx, service, "missing@example.com"); err == nil {
		t.Error("expected unknown email to error")
	}
}

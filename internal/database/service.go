/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	// _txlock=immediate takes the write lock at BEGIN, so concurrent ledger
	// mutations queue on the busy timeout instead of failing mid-transaction.
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.InitSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

// NewServiceFromDB wraps an existing connection. Used by tests with
// in-memory databases; callers own schema initialization.
func NewServiceFromDB(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// InitSchema creates all tables, indexes and the storage-boundary guards:
// non-negative balance CHECKs, the card limit CHECK, unique indexes on
// account number / reference id / idempotency key, and the triggers that
// make terminal transactions immutable regardless of caller discipline.
func (s *Service) InitSchema() error {
	schema := `
	-- Account owners
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	-- Accounts (current state - hot data). Balances are decimal strings,
	-- never floats. The CHECK rejects any write that would overdraw,
	-- independent of calling code.
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		account_number TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS NUMERIC) >= 0),
		opening_balance TEXT NOT NULL DEFAULT '0',
		currency TEXT NOT NULL DEFAULT 'INR',
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_user_id ON accounts(user_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);

	-- Cards. available_limit is pinned between zero and credit_limit at the
	-- storage boundary.
	CREATE TABLE IF NOT EXISTS cards (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		account_id TEXT NOT NULL DEFAULT '',
		card_number TEXT NOT NULL UNIQUE,
		cardholder_name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL,
		credit_limit TEXT,
		available_limit TEXT,
		expiry TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'active',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		CHECK (
			credit_limit IS NULL OR (
				CAST(available_limit AS NUMERIC) >= 0 AND
				CAST(available_limit AS NUMERIC) <= CAST(credit_limit AS NUMERIC)
			)
		)
	);

	CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards(user_id);

	-- Transactions (audit trail - cold data)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		reference_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		from_account_id TEXT NOT NULL DEFAULT '',
		card_id TEXT NOT NULL DEFAULT '',
		to_account_id TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL CHECK (CAST(amount AS NUMERIC) > 0),
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		payment_method TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		balance_after TEXT NOT NULL DEFAULT '0',
		idempotency_key TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions(user_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_from_account ON transactions(from_account_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_to_account ON transactions(to_account_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency
		ON transactions(user_id, idempotency_key) WHERE idempotency_key != '';

	-- Terminal transactions are immutable: no in-place edits, no deletes.
	-- Reversals are superseding records.
	CREATE TRIGGER IF NOT EXISTS trg_transactions_immutable
	BEFORE UPDATE ON transactions
	WHEN OLD.status IN ('completed', 'failed')
	BEGIN
		SELECT RAISE(ABORT, 'terminal transactions are immutable');
	END;

	CREATE TRIGGER IF NOT EXISTS trg_transactions_no_delete
	BEFORE DELETE ON transactions
	BEGIN
		SELECT RAISE(ABORT, 'transactions cannot be deleted');
	END;

	-- Notifications and their delivery outbox
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'info',
		read INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);

	CREATE TABLE IF NOT EXISTS outbox_jobs (
		id TEXT PRIMARY KEY,
		notification_id TEXT NOT NULL REFERENCES notifications(id),
		channel TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INTEGER NOT NULL DEFAULT 0,
		next_attempt_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox_jobs(status, next_attempt_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

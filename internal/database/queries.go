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

const (
	// User queries
	queryInsertUser = `
		INSERT INTO users (id, name, email, phone, password_hash)
		VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, phone, password_hash, role, status, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT id, name, email, phone, password_hash, role, status, created_at, updated_at
		FROM users
		WHERE email = ?`

	queryGetUsers = `
		SELECT id, name, email, phone, password_hash, role, status, created_at, updated_at
		FROM users
		ORDER BY created_at`

	// Account queries
	queryInsertAccount = `
		INSERT INTO accounts (id, user_id, account_number, kind, balance, opening_balance, currency, status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'active', 1)`

	queryGetAccount = `
		SELECT id, user_id, account_number, kind, balance, opening_balance, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE id = ?`

	queryGetOwnedAccount = `
		SELECT id, user_id, account_number, kind, balance, opening_balance, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE id = ? AND user_id = ?`

	queryGetUserAccounts = `
		SELECT id, user_id, account_number, kind, balance, opening_balance, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE user_id = ?
		ORDER BY created_at DESC`

	// The designated debit target for upi/wallet payments: the active
	// account with the highest current balance.
	queryGetPrimaryAccount = `
		SELECT id, user_id, account_number, kind, balance, opening_balance, currency, status, version, created_at, updated_at
		FROM accounts
		WHERE user_id = ? AND status = 'active'
		ORDER BY CAST(balance AS NUMERIC) DESC
		LIMIT 1`

	queryCloseAccount = `
		UPDATE accounts
		SET status = 'closed', version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND status != 'closed'`

	// Optimistic balance mutation: succeeds only when the version is
	// unchanged since the in-transaction read.
	queryUpdateAccountBalance = `
		UPDATE accounts
		SET balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	// Card queries
	queryInsertCard = `
		INSERT INTO cards (id, user_id, account_id, card_number, cardholder_name, kind,
		                   credit_limit, available_limit, expiry, status, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', 1)`

	queryGetOwnedCard = `
		SELECT id, user_id, account_id, card_number, cardholder_name, kind,
		       credit_limit, available_limit, expiry, status, version, created_at, updated_at
		FROM cards
		WHERE id = ? AND user_id = ?`

	queryGetUserCards = `
		SELECT id, user_id, account_id, card_number, cardholder_name, kind,
		       credit_limit, available_limit, expiry, status, version, created_at, updated_at
		FROM cards
		WHERE user_id = ?
		ORDER BY created_at DESC`

	queryUpdateCardLimit = `
		UPDATE cards
		SET available_limit = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`

	// Transaction queries
	queryFindByIdempotencyKey = `
		SELECT id, reference_id, user_id, from_account_id, card_id, to_account_id,
		       amount, type, status, payment_method, description, category,
		       balance_after, idempotency_key, created_at
		FROM transactions
		WHERE user_id = ? AND idempotency_key = ?
		LIMIT 1`

	queryGetTransactionByReference = `
		SELECT id, reference_id, user_id, from_account_id, card_id, to_account_id,
		       amount, type, status, payment_method, description, category,
		       balance_after, idempotency_key, created_at
		FROM transactions
		WHERE reference_id = ?`

	queryInsertTransaction = `
		INSERT INTO transactions (
			id, reference_id, user_id, from_account_id, card_id, to_account_id,
			amount, type, status, payment_method, description, category,
			balance_after, idempotency_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		RETURNING created_at`

	queryListTransactions = `
		SELECT id, reference_id, user_id, from_account_id, card_id, to_account_id,
		       amount, type, status, payment_method, description, category,
		       balance_after, idempotency_key, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Reconciliation: committed legs touching an account, signed.
	queryReconcileAccount = `
		SELECT COALESCE(SUM(
			CASE WHEN from_account_id = ?1 THEN -CAST(amount AS NUMERIC) ELSE 0 END +
			CASE WHEN to_account_id = ?1 THEN CAST(amount AS NUMERIC) ELSE 0 END
		), 0)
		FROM transactions
		WHERE (from_account_id = ?1 OR to_account_id = ?1) AND status = 'completed'`

	// Notification queries
	queryInsertNotification = `
		INSERT INTO notifications (id, user_id, title, message, type)
		VALUES (?, ?, ?, ?, ?)`

	queryListNotifications = `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`

	queryInsertOutboxJob = `
		INSERT INTO outbox_jobs (id, notification_id, channel)
		VALUES (?, ?, ?)`

	queryClaimOutboxJob = `
		SELECT j.id, j.notification_id, j.channel, j.status, j.attempts, j.next_attempt_at, j.created_at,
		       n.id, n.user_id, n.title, n.message, n.type, n.read, n.created_at
		FROM outbox_jobs j
		JOIN notifications n ON n.id = j.notification_id
		WHERE j.status = 'pending' AND j.next_attempt_at <= CURRENT_TIMESTAMP
		ORDER BY j.created_at
		LIMIT 1`

	queryMarkOutboxJob = `
		UPDATE outbox_jobs
		SET status = ?, attempts = ?, next_attempt_at = ?
		WHERE id = ?`
)

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

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CategoryReversal marks compensating records written by Reverse. Reversals
// themselves can never be reversed.
const CategoryReversal = "reversal"

// Request describes one money movement as the API surface sees it. Either a
// payment method (Method/MethodId) or a direct source account
// (FromAccountId) selects the debit side; ToAccountId, when set, selects the
// credit side. Deposits set only ToAccountId.
type Request struct {
	UserId         string
	Type           string
	Amount         decimal.Decimal
	Method         string
	MethodId       string
	FromAccountId  string
	ToAccountId    string
	Recipient      string
	Description    string
	Category       string
	IdempotencyKey string
}

// Receipt reports the committed transaction and post-commit balances.
type Receipt struct {
	Transaction        *models.Transaction
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
	// Replayed is true when the request was recognized as a duplicate by
	// idempotency key and Transaction holds the original record.
	Replayed bool
}

// Engine orchestrates money movement: it resolves the funding source,
// generates the reference id, builds the notification and hands the atomic
// commit to the store, retrying a bounded number of times when optimistic
// locking reports a conflict. The engine never mutates balances itself.
type Engine struct {
	store    store.LedgerStore
	resolver *Resolver
	cfg      models.LedgerConfig
}

func NewEngine(st store.LedgerStore, cfg models.LedgerConfig) *Engine {
	return &Engine{
		store:    st,
		resolver: NewResolver(st, cfg.WalletTxLimit),
		cfg:      cfg,
	}
}

// Execute runs one money movement end to end. Conflicting requests are
// retried with jittered backoff, re-resolving the funding source each time
// so retries observe fresh balances. All failures leave the ledger in its
// pre-request state.
func (e *Engine) Execute(ctx context.Context, req Request) (*Receipt, error) {
	if !req.Amount.IsPositive() {
		return nil, store.ErrInvalidAmount
	}
	normalizeRequest(&req)

	// Fast path: a replay by idempotency key needs no resolution, no
	// reference id and no store mutation.
	if req.IdempotencyKey != "" {
		existing, err := e.store.FindByIdempotencyKey(ctx, req.UserId, req.IdempotencyKey)
		if err != nil && !errors.Is(err, store.ErrTransactionNotFound) {
			return nil, err
		}
		if existing != nil {
			zap.L().Info("Duplicate request replayed from idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.String("reference_id", existing.ReferenceId))
			return &Receipt{Transaction: existing, Replayed: true}, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			zap.L().Debug("Retrying after concurrent modification",
				zap.Int("attempt", attempt),
				zap.String("user_id", req.UserId))
		}

		receipt, err := e.attempt(ctx, req)
		if err == nil {
			return receipt, nil
		}
		lastErr = err

		// Version conflicts and reference collisions are transient; anything
		// else is a final verdict for this request.
		if !errors.Is(err, store.ErrConcurrentModification) &&
			!errors.Is(err, store.ErrDuplicateReference) {
			return nil, err
		}
	}

	zap.L().Warn("Giving up after repeated conflicts",
		zap.Int("max_retries", e.cfg.MaxRetries),
		zap.String("user_id", req.UserId),
		zap.Error(lastErr))
	return nil, lastErr
}

// attempt performs a single resolve-and-commit pass.
func (e *Engine) attempt(ctx context.Context, req Request) (*Receipt, error) {
	m := store.Mutation{
		UserId:          req.UserId,
		Type:            req.Type,
		PaymentMethod:   req.Method,
		Amount:          req.Amount,
		CreditAccountId: req.ToAccountId,
		IdempotencyKey:  req.IdempotencyKey,
		Description:     req.Description,
		Category:        req.Category,
	}

	if req.Method != "" {
		source, err := e.resolver.Resolve(ctx, req.UserId, req.Method, req.MethodId, req.Amount)
		if err != nil {
			return nil, err
		}
		m.DebitAccountId = source.AccountId
		m.DebitCardId = source.CardId
	}

	prefix := RefPrefixTransaction
	if req.Type == models.TransactionTypePayment {
		prefix = RefPrefixPayment
	}
	reference, err := NewReference(prefix)
	if err != nil {
		return nil, err
	}
	m.ReferenceId = reference
	m.Notification = buildNotification(req)

	result, err := e.store.Apply(ctx, m)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Transaction:        result.Transaction,
		SourceBalance:      result.SourceBalance,
		DestinationBalance: result.DestinationBalance,
		Replayed:           result.Replayed,
	}, nil
}

// Reverse writes a compensating record for a completed debit-side
// transaction, restoring the debited account balance or card limit. The
// original record is never touched; reversing the same reference twice
// replays the first reversal.
func (e *Engine) Reverse(ctx context.Context, userId, referenceId, reason string) (*Receipt, error) {
	original, err := e.store.GetTransactionByReference(ctx, referenceId)
	if err != nil {
		return nil, err
	}
	if original.UserId != userId {
		return nil, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, referenceId)
	}
	if original.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("transaction %s is not completed and cannot be reversed", referenceId)
	}
	if original.Category == CategoryReversal {
		return nil, fmt.Errorf("transaction %s is itself a reversal", referenceId)
	}
	if original.ToAccountId != "" {
		return nil, fmt.Errorf("transaction %s credited another account and cannot be reversed unilaterally", referenceId)
	}
	if original.FromAccountId == "" && original.CardId == "" {
		return nil, fmt.Errorf("transaction %s has no debit leg to reverse", referenceId)
	}

	reference, err := NewReference(RefPrefixTransaction)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Reversal of %s", original.ReferenceId)
	if reason != "" {
		description = fmt.Sprintf("%s: %s", description, reason)
	}

	m := store.Mutation{
		UserId:          userId,
		Type:            models.TransactionTypeDeposit,
		PaymentMethod:   original.PaymentMethod,
		Amount:          original.Amount,
		CreditAccountId: original.FromAccountId,
		CreditCardId:    original.CardId,
		ReferenceId:     reference,
		// One reversal per original transaction, enforced by idempotency.
		IdempotencyKey: "reversal:" + original.ReferenceId,
		Description:    description,
		Category:       CategoryReversal,
		Notification: &store.NotificationParams{
			Title:   "Payment Reversed",
			Message: fmt.Sprintf("Your payment of ₹%s (%s) has been reversed.", original.Amount.String(), original.ReferenceId),
			Type:    "transaction",
		},
	}

	result, err := e.store.Apply(ctx, m)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Transaction reversed",
		zap.String("original_reference", original.ReferenceId),
		zap.String("reversal_reference", result.Transaction.ReferenceId),
		zap.Bool("replayed", result.Replayed))

	return &Receipt{
		Transaction:        result.Transaction,
		SourceBalance:      result.SourceBalance,
		DestinationBalance: result.DestinationBalance,
		Replayed:           result.Replayed,
	}, nil
}

// backoff sleeps for a jittered, exponentially growing delay, or returns
// early when the context is done.
func (e *Engine) backoff(ctx context.Context, attempt int) error {
	base := e.cfg.RetryBaseDelay
	if base <= 0 {
		base = 10 * time.Millisecond
	}
	delay := base << (attempt - 1)
	// Full jitter keeps colliding retries from re-colliding in lockstep.
	sleep := delay/2 + time.Duration(rand.Int63n(int64(delay)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(sleep):
		return nil
	}
}

func normalizeRequest(req *Request) {
	// A bare source account id is shorthand for the account method.
	if req.Method == "" && req.FromAccountId != "" {
		req.Method = models.PaymentMethodAccount
		req.MethodId = req.FromAccountId
	}
	if req.Type == "" {
		switch {
		case req.Method != "" && req.ToAccountId != "":
			req.Type = models.TransactionTypeTransfer
		case req.Method != "":
			req.Type = models.TransactionTypePayment
		default:
			req.Type = models.TransactionTypeDeposit
		}
	}
}

func buildNotification(req Request) *store.NotificationParams {
	amount := "₹" + req.Amount.String()
	switch req.Type {
	case models.TransactionTypePayment:
		recipient := req.Recipient
		if recipient == "" {
			recipient = "merchant"
		}
		return &store.NotificationParams{
			Title:   "Payment Successful",
			Message: fmt.Sprintf("You paid %s to %s via %s.", amount, recipient, req.Method),
			Type:    "transaction",
		}
	case models.TransactionTypeTransfer:
		return &store.NotificationParams{
			Title:   "Transfer Successful",
			Message: fmt.Sprintf("You transferred %s.", amount),
			Type:    "transaction",
		}
	case models.TransactionTypeDeposit:
		return &store.NotificationParams{
			Title:   "Deposit Received",
			Message: fmt.Sprintf("%s was credited to your account.", amount),
			Type:    "transaction",
		}
	case models.TransactionTypeWithdrawal:
		return &store.NotificationParams{
			Title:   "Withdrawal Successful",
			Message: fmt.Sprintf("You withdrew %s.", amount),
			Type:    "transaction",
		}
	}
	return nil
}

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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransactionRequest is the body of POST /transactions.
type CreateTransactionRequest struct {
	UserId         string          `json:"user_id"`
	FromAccountId  string          `json:"from_account_id,omitempty"`
	ToAccountId    string          `json:"to_account_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type,omitempty"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// PaymentRequest is the body of POST /payments (the payment gateway
// operation). Exactly one method-specific identifier is consulted depending
// on PaymentMethod.
type PaymentRequest struct {
	UserId         string          `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	Recipient      string          `json:"recipient"`
	PaymentMethod  string          `json:"payment_method"`
	AccountId      string          `json:"account_id,omitempty"`
	CardId         string          `json:"card_id,omitempty"`
	UpiId          string          `json:"upi_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// TransactionResponse is returned for every successful money movement.
type TransactionResponse struct {
	Id            string          `json:"id"`
	ReferenceId   string          `json:"reference_id"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
	Category      string          `json:"category,omitempty"`
	FromAccountId string          `json:"from_account_id,omitempty"`
	ToAccountId   string          `json:"to_account_id,omitempty"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	Id            string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Kind          string          `json:"kind"`
	Balance       decimal.Decimal `json:"balance"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CardResponse is the public view of a card. The card number is always
// masked; the full number never leaves the store through listing endpoints.
type CardResponse struct {
	Id             string          `json:"id"`
	MaskedNumber   string          `json:"masked_number"`
	CardholderName string          `json:"cardholder_name"`
	Kind           string          `json:"kind"`
	CreditLimit    decimal.Decimal `json:"credit_limit,omitempty"`
	AvailableLimit decimal.Decimal `json:"available_limit,omitempty"`
	Expiry         string          `json:"expiry"`
	Status         string          `json:"status"`
}

// OnboardingRequest opens an account for a new or existing user.
type OnboardingRequest struct {
	UserId         string          `json:"user_id,omitempty"`
	Name           string          `json:"name,omitempty"`
	Email          string          `json:"email,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Password       string          `json:"password,omitempty"`
	AccountKind    string          `json:"account_kind"`
	Currency       string          `json:"currency,omitempty"`
	OpeningBalance decimal.Decimal `json:"opening_balance,omitempty"`
}

// OnboardingResponse reports the owner and the newly opened account.
type OnboardingResponse struct {
	UserId  string          `json:"user_id"`
	Account AccountResponse `json:"account"`
}

// IssueCardRequest issues a card against an owner, optionally linked to an
// account (debit) or carrying its own limit (credit).
type IssueCardRequest struct {
	UserId         string          `json:"user_id"`
	AccountId      string          `json:"account_id,omitempty"`
	Kind           string          `json:"kind"`
	CardholderName string          `json:"cardholder_name"`
	CreditLimit    decimal.Decimal `json:"credit_limit,omitempty"`
}

// ReverseRequest asks for a compensating record against a completed
// transaction.
type ReverseRequest struct {
	UserId string `json:"user_id"`
	Reason string `json:"reason,omitempty"`
}

// APIError is the machine-readable error envelope: a taxonomy kind plus a
// human-readable message.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse wraps APIError for JSON responses.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

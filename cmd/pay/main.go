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

package main

import (
	"context"
	"flag"
	"fmt"

	"nexbank-ledger-go/internal/common"
	"nexbank-ledger-go/internal/config"
	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type payRequest struct {
	email          string
	amount         decimal.Decimal
	method         string
	methodId       string
	recipient      string
	description    string
	idempotencyKey string
}

func parseAndValidateFlags() (*payRequest, error) {
	emailFlag := flag.String("email", "", "Payer email (required)")
	amountFlag := flag.String("amount", "", "Amount to pay (required)")
	methodFlag := flag.String("method", models.PaymentMethodAccount, "Payment method: account, card, upi, wallet")
	methodIdFlag := flag.String("method-id", "", "Account or card id (required for account/card methods)")
	recipientFlag := flag.String("recipient", "", "Recipient name shown in notifications")
	descriptionFlag := flag.String("description", "", "Transaction description")
	keyFlag := flag.String("idempotency-key", "", "Idempotency key (optional, makes retries safe)")
	flag.Parse()

	if *emailFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("required flags: --email, --amount")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &payRequest{
		email:          *emailFlag,
		amount:         amount,
		method:         *methodFlag,
		methodId:       *methodIdFlag,
		recipient:      *recipientFlag,
		description:    *descriptionFlag,
		idempotencyKey: *keyFlag,
	}, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	req, err := parseAndValidateFlags()
	if err != nil {
		logger.Fatal("Invalid arguments", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	user, err := services.DbService.GetUserByEmail(ctx, req.email)
	if err != nil {
		logger.Fatal("User lookup failed", zap.String("email", req.email), zap.Error(err))
	}

	receipt, err := services.Engine.Execute(ctx, ledger.Request{
		UserId:         user.Id,
		Type:           models.TransactionTypePayment,
		Amount:         req.amount,
		Method:         req.method,
		MethodId:       req.methodId,
		Recipient:      req.recipient,
		Description:    req.description,
		IdempotencyKey: req.idempotencyKey,
	})
	if err != nil {
		logger.Fatal("Payment failed", zap.Error(err))
	}

	// Deliver the payment notification before exiting; the server binary
	// does this continuously in the background.
	services.Dispatcher.Drain(ctx)

	title := "PAYMENT COMPLETED"
	if receipt.Replayed {
		title = "PAYMENT ALREADY PROCESSED (idempotent)"
	}
	common.PrintBanner(title)
	fmt.Printf("Reference:      %s\n", receipt.Transaction.ReferenceId)
	fmt.Printf("Amount:         %s\n", receipt.Transaction.Amount.String())
	fmt.Printf("Method:         %s\n", receipt.Transaction.PaymentMethod)
	fmt.Printf("Balance after:  %s\n", receipt.Transaction.BalanceAfter.String())
	common.PrintSummary("Done")
}

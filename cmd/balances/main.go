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

	"nexbank-ledger-go/internal/cardutil"
	"nexbank-ledger-go/internal/common"
	"nexbank-ledger-go/internal/config"
	"nexbank-ledger-go/internal/database"
	"nexbank-ledger-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalAccounts     int
	usersWithAccounts int
}

func printAccount(account models.Account, isLast bool) {
	symbol := common.TreePrefix(isLast)
	fmt.Printf("%s %-18s %-9s %20s %s (v%d, %s)\n",
		symbol,
		account.AccountNumber,
		account.Kind,
		account.Balance.String(),
		account.Currency,
		account.Version,
		account.Status)
}

func printCard(card models.Card, isLast bool) {
	symbol := common.TreePrefix(isLast)
	if card.Kind == models.CardKindCredit {
		fmt.Printf("%s %-18s %-9s available %s of %s (%s)\n",
			symbol, cardutil.Mask(card.CardNumber), card.Kind,
			card.AvailableLimit.String(), card.CreditLimit.String(), card.Status)
		return
	}
	fmt.Printf("%s %-18s %-9s linked account %s (%s)\n",
		symbol, cardutil.Mask(card.CardNumber), card.Kind, card.AccountId, card.Status)
}

func printUserHeader(user models.User, accountCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	fmt.Printf("│  Accounts: %d\n", accountCount)
}

func processUser(ctx context.Context, user models.User, dbService *database.Service) (int, error) {
	accounts, err := dbService.GetUserAccounts(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get accounts: %w", err)
	}
	cards, err := dbService.GetUserCards(ctx, user.Id)
	if err != nil {
		return 0, fmt.Errorf("failed to get cards: %w", err)
	}

	if len(accounts) == 0 && len(cards) == 0 {
		return 0, nil
	}

	printUserHeader(user, len(accounts))
	for i, account := range accounts {
		printAccount(account, len(cards) == 0 && i == len(accounts)-1)
	}
	for i, card := range cards {
		printCard(card, i == len(cards)-1)
	}

	return len(accounts), nil
}

func processUsersAndGenerateReport(ctx context.Context, users []models.User, dbService *database.Service, logger *zap.Logger) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		accountCount, err := processUser(ctx, user, dbService)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if accountCount > 0 {
			stats.usersWithAccounts++
			stats.totalAccounts += accountCount
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.SelectUsers(ctx, dbService, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to select users", zap.Error(err))
	}
	logger.Info("Selected users", zap.Int("count", len(users)))

	common.PrintBanner("ACCOUNT BALANCE REPORT")

	stats := processUsersAndGenerateReport(ctx, users, dbService, logger)

	summary := fmt.Sprintf("SUMMARY: %d users with accounts (%d total accounts across %d users queried)",
		stats.usersWithAccounts, stats.totalAccounts, stats.totalUsers)
	common.PrintSummary(summary)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_accounts", stats.usersWithAccounts),
		zap.Int("total_accounts", stats.totalAccounts))
}

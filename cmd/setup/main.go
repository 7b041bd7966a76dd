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

	"nexbank-ledger-go/internal/common"
	"nexbank-ledger-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	seedFlag := flag.String("seed", "", "YAML seed file with users, accounts and cards (optional)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Initializing database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if *seedFlag != "" {
		seedConfig, err := common.LoadSeedConfig(*seedFlag)
		if err != nil {
			logger.Fatal("Failed to load seed file", zap.Error(err))
		}
		if err := common.ApplySeed(ctx, dbService, seedConfig, cfg.Ledger.DefaultCurrency); err != nil {
			logger.Fatal("Failed to apply seed", zap.Error(err))
		}
		logger.Info("Seed applied", zap.Int("users", len(seedConfig.Users)))
	}

	logger.Info("Setup completed")
}

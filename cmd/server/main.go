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
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"nexbank-ledger-go/internal/api"
	"nexbank-ledger-go/internal/common"
	"nexbank-ledger-go/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(services.Engine, services.DbService).Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Periodic reconciliation: verify every account balance against its
	// transaction history.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Server.ReconcileSpec, func() {
		reconcileAll(ctx, services)
	})
	if err != nil {
		logger.Fatal("Invalid reconcile cron spec",
			zap.String("spec", cfg.Server.ReconcileSpec), zap.Error(err))
	}
	scheduler.Start()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("HTTP server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		services.Dispatcher.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("Shutting down")

		stopCtx := scheduler.Stop()
		<-stopCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("Server exited with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func reconcileAll(ctx context.Context, services *common.Services) {
	users, err := services.DbService.GetUsers(ctx)
	if err != nil {
		zap.L().Error("Reconciliation sweep failed to list users", zap.Error(err))
		return
	}

	checked, failed := 0, 0
	for _, user := range users {
		accounts, err := services.DbService.GetUserAccounts(ctx, user.Id)
		if err != nil {
			zap.L().Error("Reconciliation sweep failed to list accounts",
				zap.String("user_id", user.Id), zap.Error(err))
			continue
		}
		for _, account := range accounts {
			checked++
			if err := services.DbService.ReconcileAccount(ctx, account.Id); err != nil {
				failed++
			}
		}
	}

	zap.L().Info("Reconciliation sweep completed",
		zap.Int("accounts_checked", checked),
		zap.Int("mismatches", failed))
}

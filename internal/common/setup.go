package common

import (
	"context"
	"log"
	"strings"

	"nexbank-ledger-go/internal/database"
	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/notify"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services bundles the wired application components for the binaries.
type Services struct {
	DbService  *database.Service
	Engine     *ledger.Engine
	Dispatcher *notify.Dispatcher
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	engine := ledger.NewEngine(dbService, cfg.Ledger)

	var sender notify.Sender
	if cfg.Notify.EmailEnabled() {
		zap.L().Info("SMTP channel configured", zap.String("host", cfg.Notify.SMTPHost))
		sender = notify.NewEmailSender(cfg.Notify)
	}
	dispatcher := notify.NewDispatcher(dbService, sender, cfg.Notify)

	return &Services{
		DbService:  dbService,
		Engine:     engine,
		Dispatcher: dispatcher,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}

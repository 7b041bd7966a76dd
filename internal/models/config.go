package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ledger   LedgerConfig
	Notify   NotifyConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	ReconcileSpec   string // cron spec for the periodic reconciliation job
}

// LedgerConfig holds transaction engine policy settings
type LedgerConfig struct {
	// WalletTxLimit is the fixed per-transaction ceiling for wallet
	// payments, independent of the backing account balance.
	WalletTxLimit decimal.Decimal
	// MaxRetries bounds automatic retries on concurrent-modification
	// conflicts. Each retry re-resolves and re-validates the funding source.
	MaxRetries int
	// RetryBaseDelay is the base for jittered backoff between retries.
	RetryBaseDelay time.Duration
	// DefaultCurrency is assigned to accounts created without one.
	DefaultCurrency string
}

// NotifyConfig holds notification outbox dispatcher settings
type NotifyConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// EmailEnabled reports whether the SMTP channel is configured.
func (c NotifyConfig) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != ""
}

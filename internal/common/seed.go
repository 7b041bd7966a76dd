package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nexbank-ledger-go/internal/cardutil"
	"nexbank-ledger-go/internal/ledger"
	"nexbank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v2"
)

type SeedAccount struct {
	Kind           string `yaml:"kind"`
	OpeningBalance string `yaml:"opening_balance"`
	Currency       string `yaml:"currency"`
}

type SeedCard struct {
	Kind        string `yaml:"kind"`
	CreditLimit string `yaml:"credit_limit"`
}

type SeedUser struct {
	Name     string        `yaml:"name"`
	Email    string        `yaml:"email"`
	Phone    string        `yaml:"phone"`
	Password string        `yaml:"password"`
	Accounts []SeedAccount `yaml:"accounts"`
	Cards    []SeedCard    `yaml:"cards"`
}

type SeedConfig struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedConfig reads and validates the YAML seed file used by the setup
// binary to provision users, accounts and cards.
func LoadSeedConfig(seedFile string) (*SeedConfig, error) {
	var seedPath string
	if filepath.IsAbs(seedFile) {
		seedPath = seedFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		seedPath = filepath.Join(wd, seedFile)
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", seedFile, err)
	}

	var config SeedConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", seedFile, err)
	}

	for i, user := range config.Users {
		if user.Name == "" {
			return nil, fmt.Errorf("user at index %d missing name", i)
		}
		if user.Email == "" {
			return nil, fmt.Errorf("user at index %d missing email", i)
		}
	}

	return &config, nil
}

// ApplySeed provisions every user, account and card from the seed config.
// Existing users (matched by email) are kept as-is.
func ApplySeed(ctx context.Context, dbService store.LedgerStore, config *SeedConfig, defaultCurrency string) error {
	for _, seedUser := range config.Users {
		if _, err := dbService.GetUserByEmail(ctx, seedUser.Email); err == nil {
			zap.L().Info("User already exists, skipping", zap.String("email", seedUser.Email))
			continue
		}

		hash := ""
		if seedUser.Password != "" {
			hashed, err := bcrypt.GenerateFromPassword([]byte(seedUser.Password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("failed to hash password for %s: %w", seedUser.Email, err)
			}
			hash = string(hashed)
		}

		user, err := dbService.CreateUser(ctx, seedUser.Name, seedUser.Email, seedUser.Phone, hash)
		if err != nil {
			return err
		}

		var firstAccountId string
		for _, seedAccount := range seedUser.Accounts {
			opening := decimal.Zero
			if seedAccount.OpeningBalance != "" {
				opening, err = decimal.NewFromString(seedAccount.OpeningBalance)
				if err != nil {
					return fmt.Errorf("invalid opening balance %q for %s: %w",
						seedAccount.OpeningBalance, seedUser.Email, err)
				}
			}
			currency := seedAccount.Currency
			if currency == "" {
				currency = defaultCurrency
			}
			accountNumber, err := ledger.NewAccountNumber()
			if err != nil {
				return err
			}
			account, err := dbService.CreateAccount(ctx, store.CreateAccountParams{
				UserId:         user.Id,
				AccountNumber:  accountNumber,
				Kind:           seedAccount.Kind,
				Currency:       currency,
				OpeningBalance: opening,
			})
			if err != nil {
				return err
			}
			if firstAccountId == "" {
				firstAccountId = account.Id
			}
		}

		for _, seedCard := range seedUser.Cards {
			limit := decimal.Zero
			if seedCard.CreditLimit != "" {
				limit, err = decimal.NewFromString(seedCard.CreditLimit)
				if err != nil {
					return fmt.Errorf("invalid credit limit %q for %s: %w",
						seedCard.CreditLimit, seedUser.Email, err)
				}
			}
			number, err := cardutil.GenerateNumber("")
			if err != nil {
				return err
			}
			accountId := ""
			if seedCard.Kind == "debit" {
				accountId = firstAccountId
			}
			_, err = dbService.CreateCard(ctx, store.CreateCardParams{
				UserId:         user.Id,
				AccountId:      accountId,
				CardNumber:     number,
				CardholderName: seedUser.Name,
				Kind:           seedCard.Kind,
				CreditLimit:    limit,
				Expiry:         cardutil.Expiry(4),
			})
			if err != nil {
				return err
			}
		}

		zap.L().Info("Seeded user",
			zap.String("email", seedUser.Email),
			zap.Int("accounts", len(seedUser.Accounts)),
			zap.Int("cards", len(seedUser.Cards)))
	}
	return nil
}

package ledger

import (
	"context"
	"fmt"

	"nexbank-ledger-go/internal/models"
	"nexbank-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// FundingSource is the resolved debit target for a payment. Exactly one of
// AccountId/CardId is populated: AccountId for account, upi, wallet and
// linked debit-card payments, CardId for credit-card payments.
type FundingSource struct {
	AccountId string
	CardId    string
}

// Resolver maps a (method, methodId) pair from an API request onto the
// concrete balance the ledger should debit, and pre-validates status,
// ownership and sufficiency. The checks here give callers fast, precise
// failures; the storage layer re-validates everything inside the atomic
// commit, so a stale read can never double-spend.
type Resolver struct {
	store         store.LedgerStore
	walletTxLimit decimal.Decimal
}

func NewResolver(st store.LedgerStore, walletTxLimit decimal.Decimal) *Resolver {
	return &Resolver{store: st, walletTxLimit: walletTxLimit}
}

func (r *Resolver) Resolve(ctx context.Context, userId, method, methodId string, amount decimal.Decimal) (*FundingSource, error) {
	switch method {
	case models.PaymentMethodAccount:
		return r.resolveAccount(ctx, userId, methodId, amount)
	case models.PaymentMethodCard:
		return r.resolveCard(ctx, userId, methodId, amount)
	case models.PaymentMethodUPI:
		return r.resolvePrimary(ctx, userId, amount)
	case models.PaymentMethodWallet:
		// Wallet payments carry a fixed per-transaction ceiling on top of
		// the usual balance check.
		if amount.GreaterThan(r.walletTxLimit) {
			return nil, fmt.Errorf("%w: amount=%s, limit=%s",
				store.ErrWalletLimitExceeded, amount.String(), r.walletTxLimit.String())
		}
		return r.resolvePrimary(ctx, userId, amount)
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrUnsupportedMethod, method)
	}
}

func (r *Resolver) resolveAccount(ctx context.Context, userId, accountId string, amount decimal.Decimal) (*FundingSource, error) {
	account, err := r.store.GetOwnedAccount(ctx, accountId, userId)
	if err != nil {
		return nil, err
	}
	if err := checkAccount(account, amount); err != nil {
		return nil, err
	}
	return &FundingSource{AccountId: account.Id}, nil
}

// resolveCard handles both card kinds: a credit card is debited against its
// own available limit, a debit card is an alias for its linked account.
func (r *Resolver) resolveCard(ctx context.Context, userId, cardId string, amount decimal.Decimal) (*FundingSource, error) {
	card, err := r.store.GetOwnedCard(ctx, cardId, userId)
	if err != nil {
		return nil, err
	}
	if card.Status != models.CardStatusActive {
		return nil, fmt.Errorf("%w: %s", store.ErrCardInactive, card.Id)
	}

	if card.Kind == models.CardKindCredit {
		if card.AvailableLimit.LessThan(amount) {
			return nil, fmt.Errorf("%w: available=%s, requested=%s",
				store.ErrInsufficientCredit, card.AvailableLimit.String(), amount.String())
		}
		return &FundingSource{CardId: card.Id}, nil
	}

	if card.AccountId == "" {
		return nil, fmt.Errorf("%w: card %s", store.ErrNoLinkedAccount, card.Id)
	}
	return r.resolveAccount(ctx, userId, card.AccountId, amount)
}

// resolvePrimary picks the deterministic debit target for upi and wallet
// payments: the owner's active account with the highest balance.
func (r *Resolver) resolvePrimary(ctx context.Context, userId string, amount decimal.Decimal) (*FundingSource, error) {
	account, err := r.store.GetPrimaryAccount(ctx, userId)
	if err != nil {
		return nil, err
	}
	if err := checkAccount(account, amount); err != nil {
		return nil, err
	}
	return &FundingSource{AccountId: account.Id}, nil
}

func checkAccount(account *models.Account, amount decimal.Decimal) error {
	if account.Status != models.AccountStatusActive {
		return fmt.Errorf("%w: %s", store.ErrAccountInactive, account.Id)
	}
	if account.Balance.LessThan(amount) {
		return fmt.Errorf("%w: balance=%s, requested=%s",
			store.ErrInsufficientFunds, account.Balance.String(), amount.String())
	}
	return nil
}

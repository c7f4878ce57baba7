package repository

import (
	"context"

	"billing-user/internal/domain/model"
)

// AccountRepository is the port for user/account persistence.
type AccountRepository interface {
	// FindByEmail returns domain.ErrNotFound when no account exists.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.Account, error)
	// FindCurrentPlan returns the plan behind the account's current billing
	// credit, free plans included, or domain.ErrNotFound when the account has
	// no current billing credit.
	FindCurrentPlan(ctx context.Context, tx Tx, accountID int64) (*model.Plan, error)
	// FindEncryptedCreditCard returns domain.ErrNotFound when no card is stored.
	FindEncryptedCreditCard(ctx context.Context, tx Tx, email string) (*model.CreditCard, error)
	// UpdateBillingCredit persists CurrentBillingCreditID and OriginInbound and
	// clears UpgradePending.
	UpdateBillingCredit(ctx context.Context, tx Tx, a *model.Account) error
	AvailableCredit(ctx context.Context, tx Tx, accountID int64) (int, error)
	FindProfile(ctx context.Context, tx Tx, email string) (*model.AccountProfile, error)
	UpdatePaymentMethod(ctx context.Context, tx Tx, accountID int64, card *model.CreditCard, pm *model.PaymentMethod) error
	FindBusinessPartnerSource(ctx context.Context, tx Tx, accountID int64, selectedPlanID int) (*model.BusinessPartnerSource, error)
}

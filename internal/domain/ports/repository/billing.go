package repository

import (
	"context"

	"billing-user/internal/domain/model"
)

// BillingRepository is the port for billing profile and ledger persistence.
type BillingRepository interface {
	GetBillingInformation(ctx context.Context, tx Tx, email string) (*model.BillingInformation, error)
	UpdateBillingInformation(ctx context.Context, tx Tx, email string, b *model.BillingInformation) error
	GetInvoiceRecipients(ctx context.Context, tx Tx, email string) (*model.InvoiceRecipients, error)
	UpdateInvoiceRecipients(ctx context.Context, tx Tx, email string, recipients []string, planID *int) error
	// GetCurrentPaymentMethod returns the stored (still encrypted) payment method.
	GetCurrentPaymentMethod(ctx context.Context, tx Tx, email string) (*model.PaymentMethod, error)
	GetCurrentPlan(ctx context.Context, tx Tx, email string) (*model.CurrentPlan, error)

	// CreateAccountingEntries writes the invoice and payment lines of a charge
	// and returns the invoice id.
	CreateAccountingEntries(ctx context.Context, tx Tx, invoice, payment *model.AccountingEntry) (int64, error)
	CreateBillingCredit(ctx context.Context, tx Tx, bc *model.BillingCredit) (int64, error)
	FindBillingCredit(ctx context.Context, tx Tx, id int64) (*model.BillingCredit, error)
	CreateCreditMovement(ctx context.Context, tx Tx, m *model.CreditMovement) (int64, error)
}

// IdempotencyStore reserves client-supplied idempotency keys. Keys are
// scoped to the account that sent them.
type IdempotencyStore interface {
	// Reserve returns false when account already reserved key.
	Reserve(ctx context.Context, account, key string) (bool, error)
	Release(ctx context.Context, account, key string) error
}

package usecase

import (
	"context"

	"billing-user/internal/domain/model"
)

// AgreementCreator runs the agreement workflow for one account.
type AgreementCreator interface {
	// Create moves account onto the requested plan. idempotencyKey is optional;
	// when set, a second call with the same key is rejected.
	Create(ctx context.Context, account string, req *model.AgreementRequest, idempotencyKey string) (*model.AgreementResult, error)
}

// BillingManager serves the billing profile endpoints.
type BillingManager interface {
	GetBillingInformation(ctx context.Context, account string) (*model.BillingInformation, error)
	UpdateBillingInformation(ctx context.Context, account string, info *model.BillingInformation) error
	GetInvoiceRecipients(ctx context.Context, account string) (*model.InvoiceRecipients, error)
	UpdateInvoiceRecipients(ctx context.Context, account string, r *model.InvoiceRecipients) error
	GetCurrentPlan(ctx context.Context, account string) (*model.CurrentPlan, error)
}

// PaymentMethodManager reads and switches the stored payment method.
type PaymentMethodManager interface {
	GetCurrent(ctx context.Context, account string) (*model.PaymentMethod, error)
	UpdateCurrent(ctx context.Context, account string, pm *model.PaymentMethod) error
}

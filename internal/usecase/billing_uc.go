package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
	ucport "billing-user/internal/domain/ports/usecase"
	"billing-user/internal/infra/logging"
)

// Compile-time check
var _ ucport.BillingManager = (*billingUC)(nil)

type billingUC struct {
	billing repository.BillingRepository
	log     *zerolog.Logger
}

func NewBillingUseCase(billing repository.BillingRepository, logger *zerolog.Logger) *billingUC {
	return &billingUC{billing: billing, log: logger}
}

func (u *billingUC) GetBillingInformation(ctx context.Context, account string) (*model.BillingInformation, error) {
	defer logging.TraceDuration(u.log, "BillingUC.GetBillingInformation")()
	return u.billing.GetBillingInformation(ctx, repository.NoTX, account)
}

func (u *billingUC) UpdateBillingInformation(ctx context.Context, account string, info *model.BillingInformation) error {
	defer logging.TraceDuration(u.log, "BillingUC.UpdateBillingInformation")()
	if info == nil {
		return domain.NewValidationError([]string{"Request body must not be empty."})
	}
	if errs := info.Validate(); len(errs) > 0 {
		return domain.NewValidationError(errs)
	}
	return u.billing.UpdateBillingInformation(ctx, repository.NoTX, account, info)
}

func (u *billingUC) GetInvoiceRecipients(ctx context.Context, account string) (*model.InvoiceRecipients, error) {
	defer logging.TraceDuration(u.log, "BillingUC.GetInvoiceRecipients")()
	return u.billing.GetInvoiceRecipients(ctx, repository.NoTX, account)
}

func (u *billingUC) UpdateInvoiceRecipients(ctx context.Context, account string, r *model.InvoiceRecipients) error {
	defer logging.TraceDuration(u.log, "BillingUC.UpdateInvoiceRecipients")()
	if r == nil {
		return domain.NewValidationError([]string{"Request body must not be empty."})
	}
	recipients := make([]string, 0, len(r.Recipients))
	for _, addr := range r.Recipients {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return u.billing.UpdateInvoiceRecipients(ctx, repository.NoTX, account, recipients, r.PlanID)
}

func (u *billingUC) GetCurrentPlan(ctx context.Context, account string) (*model.CurrentPlan, error) {
	defer logging.TraceDuration(u.log, "BillingUC.GetCurrentPlan")()
	return u.billing.GetCurrentPlan(ctx, repository.NoTX, account)
}

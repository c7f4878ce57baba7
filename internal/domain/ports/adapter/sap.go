package adapter

import (
	"context"

	"billing-user/internal/domain/model"
)

// SapClient pushes records to the ERP.
type SapClient interface {
	SendBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error
	SendBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error
}

// SapDispatcher hands ERP pushes off without blocking the caller. Errors
// returned here only mean the push could not be scheduled.
type SapDispatcher interface {
	DispatchBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error
	DispatchBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error
}

package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AgreementRequest asks to move an account onto a new plan.
type AgreementRequest struct {
	PlanID        int              `json:"planId"`
	Total         *decimal.Decimal `json:"total"`
	Promocode     string           `json:"promocode"`
	DiscountID    int              `json:"discountId"`
	OriginInbound string           `json:"originInbound"`
}

// Validate checks field presence and format only.
func (a *AgreementRequest) Validate() []string {
	var errs []string
	if a.PlanID <= 0 {
		errs = append(errs, "'Plan Id' must not be empty.")
	}
	if a.Total == nil {
		errs = append(errs, "'Total' must not be empty.")
	} else if a.Total.IsNegative() {
		errs = append(errs, "'Total' must be greater than or equal to '0'.")
	}
	if len(a.Promocode) > 50 {
		errs = append(errs, "'Promocode' must be 50 characters or fewer.")
	}
	return errs
}

// TotalAmount returns the requested total, zero when unset.
func (a *AgreementRequest) TotalAmount() decimal.Decimal {
	if a == nil || a.Total == nil {
		return decimal.Zero
	}
	return *a.Total
}

func (a *AgreementRequest) HasPromocode() bool {
	return strings.TrimSpace(a.Promocode) != ""
}

// AgreementResult summarizes a successful agreement.
type AgreementResult struct {
	OperationID      string
	BillingCreditID  int64
	MovementID       int64
	AuthorizationRef string
	InvoiceID        *int64
	Promotion        PromotionOutcome
}

package model

import "github.com/shopspring/decimal"

// Promotion is a discount code scoped to a single plan.
type Promotion struct {
	ID                 int
	Code               string
	PlanID             int
	DiscountPercentage decimal.Decimal
	ExtraCredits       *int
	Duration           *int
	TimesUsed          int
}

// BonusCredits returns the extra credits granted by the promotion, zero when
// the promotion is absent or grants none.
func (p *Promotion) BonusCredits() int {
	if p == nil || p.ExtraCredits == nil {
		return 0
	}
	return *p.ExtraCredits
}

// PromotionOutcome records how a requested promotion code was resolved.
type PromotionOutcome string

const (
	PromotionNone       PromotionOutcome = "none"
	PromotionApplied    PromotionOutcome = "applied"
	PromotionUnresolved PromotionOutcome = "unresolved"
)

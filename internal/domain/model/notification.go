package model

import "github.com/shopspring/decimal"

// UpgradeNotice is the customer-facing notification model for a new
// agreement. Presentation flags are derived by the template layer.
type UpgradeNotice struct {
	Email            string
	FirstName        string
	Language         string
	PlanCategory     PlanCategory
	PaymentMethod    PaymentMethodKind
	ConsumerType     ConsumerType
	CreditsQty       int
	SubscribersQty   int
	Fee              decimal.Decimal
	AvailableCredits int
	Year             int
}

// AdminUpgradeNotice is the internal notification with business fields.
type AdminUpgradeNotice struct {
	Profile       AccountProfile
	PlanID        int
	PlanCategory  PlanCategory
	PaymentMethod PaymentMethodKind
	Fee           decimal.Decimal
	Total         decimal.Decimal
	CreditsQty    int
	Promocode     string
	Discount      decimal.Decimal
	OriginInbound string
	Year          int
}

package model

import "github.com/shopspring/decimal"

// UserType is the plan family an account can be on.
type UserType int

const (
	UserTypeMonthly     UserType = 1
	UserTypeIndividual  UserType = 2
	UserTypeFree        UserType = 3
	UserTypeSubscribers UserType = 4
)

func (t UserType) String() string {
	switch t {
	case UserTypeMonthly:
		return "monthly"
	case UserTypeIndividual:
		return "individual"
	case UserTypeFree:
		return "free"
	case UserTypeSubscribers:
		return "subscribers"
	}
	return "unknown"
}

// PlanCategory is the enumerated variant handed to the notification layer.
type PlanCategory string

const (
	PlanCategoryIndividual  PlanCategory = "individual"
	PlanCategoryMonthly     PlanCategory = "monthly"
	PlanCategorySubscribers PlanCategory = "subscribers"
	PlanCategoryOther       PlanCategory = "other"
)

// Plan is immutable reference data describing a purchasable plan.
type Plan struct {
	ID             int
	Type           UserType
	Description    string
	Fee            decimal.Decimal
	EmailQty       *int
	SubscribersQty *int
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == 0 }

func (p *Plan) Category() PlanCategory {
	switch p.Type {
	case UserTypeIndividual:
		return PlanCategoryIndividual
	case UserTypeMonthly:
		return PlanCategoryMonthly
	case UserTypeSubscribers:
		return PlanCategorySubscribers
	}
	return PlanCategoryOther
}

// Credits returns the email credits granted by the plan, zero when unset.
func (p *Plan) Credits() int {
	if p == nil || p.EmailQty == nil {
		return 0
	}
	return *p.EmailQty
}

// CurrentPlan is the read model served by GET plans/current.
type CurrentPlan struct {
	PlanID           int             `json:"idPlan"`
	PlanType         string          `json:"planType"`
	Fee              decimal.Decimal `json:"fee"`
	EmailQty         *int            `json:"emailQty"`
	SubscribersQty   *int            `json:"subscribersQty"`
	RemainingCredits int             `json:"remainingCredits"`
}

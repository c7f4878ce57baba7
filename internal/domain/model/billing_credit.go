package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCredit is the ledger header for one plan purchase. It is written once
// per agreement and never changed afterwards, except for AccountingInvoiceID.
type BillingCredit struct {
	ID                  int64
	AccountID           int64
	Date                time.Time
	PaymentMethod       PaymentMethodKind
	ConsumerType        ConsumerType
	RazonSocial         string
	CUIT                string
	CCNumber            string
	CCHolderFullName    string
	CCExpMonth          int
	CCExpYear           int
	CCVerification      string
	CCType              string
	PlanID              int
	PreviousPlanID      *int
	PlanFee             decimal.Decimal
	CreditsQty          int
	ExtraCredits        int
	TotalCreditsQty     int
	PromotionID         *int
	DiscountPercentage  decimal.Decimal
	ActivationDate      time.Time
	PaymentDate         *time.Time
	Approved            bool
	AuthorizationNumber string
	AccountingInvoiceID *int64
	ResponsibleBilling  ResponsibleBilling
}

// CreditMovement records the balance change produced by a BillingCredit.
type CreditMovement struct {
	ID              int64
	AccountID       int64
	BillingCreditID int64
	Date            time.Time
	CreditsQty      int
	PartialBalance  int
	ConceptEnglish  string
	ConceptSpanish  string
	Visible         bool
}

// AccountingEntryType distinguishes invoices from payments in the ledger.
type AccountingEntryType string

const (
	AccountingEntryInvoice AccountingEntryType = "Invoice"
	AccountingEntryPayment AccountingEntryType = "Payment"
)

// AccountingEntry is one accounting-ledger line for a charge.
type AccountingEntry struct {
	ID                  int64
	AccountID           int64
	Date                time.Time
	Amount              decimal.Decimal
	Type                AccountingEntryType
	Status              string
	Source              string
	InvoiceID           *int64
	AuthorizationNumber string
	CCNumber            string
	CCType              string
	PaymentMethod       PaymentMethodKind
	Currency            string
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SapBillingRecord is the ERP shape of a plan purchase.
type SapBillingRecord struct {
	ID                   int64           `json:"id"`
	BillingCreditID      int64           `json:"billingCreditId"`
	PlanType             int             `json:"planType"`
	PlanFee              decimal.Decimal `json:"planFee"`
	Discount             decimal.Decimal `json:"discount"`
	CreditsOrSubscribers int             `json:"creditsOrSubscribers"`
	ExtraCredits         int             `json:"extraCredits"`
	IsCustomPlan         bool            `json:"isCustomPlan"`
	IsFirstPurchase      bool            `json:"isFirstPurchase"`
	IsPlanUpgrade        bool            `json:"isPlanUpgrade"`
	Currency             string          `json:"currency"`
	Total                decimal.Decimal `json:"total"`
	CardHolder           string          `json:"cardHolder"`
	CardType             string          `json:"cardType"`
	CardNumber           string          `json:"cardNumber"`
	TransactionApproved  bool            `json:"transactionApproved"`
	AuthorizationNumber  string          `json:"authorizationNumber"`
	InvoiceID            *int64          `json:"invoiceId,omitempty"`
	PaymentDate          time.Time       `json:"paymentDate"`
	InvoiceDate          time.Time       `json:"invoiceDate"`
	BillingSystemID      int             `json:"billingSystemId"`
	FiscalID             string          `json:"fiscalId"`
}

// BusinessPartnerSource is the account row the business partner is built from.
type BusinessPartnerSource struct {
	AccountID               int64
	BillingEmails           string
	RazonSocial             *string
	BillingFirstName        *string
	BillingLastName         *string
	BillingAddress          *string
	CityName                *string
	StateID                 *int
	StateCountryCode        *string
	Address                 *string
	ZipCode                 *string
	BillingZip              *string
	Email                   string
	PhoneNumber             *string
	ConsumerType            ConsumerType
	CUIT                    string
	Cancelled               bool
	SapProperties           []byte
	BlockedAccountNotPayed  bool
	IsInbound               bool
	BillingStateCountryCode *string
	PaymentMethod           PaymentMethodKind
	PlanType                *int
	ResponsibleBilling      ResponsibleBilling
	BillingStateID          *int
	BillingStateName        *string
	BillingCity             *string
}

// SapBusinessPartner is the ERP shape of an account.
type SapBusinessPartner struct {
	ID                 int64             `json:"id"`
	IsClientManager    bool              `json:"isClientManager"`
	BillingEmails      []string          `json:"billingEmails"`
	FirstName          string            `json:"firstName"`
	LastName           string            `json:"lastName"`
	BillingAddress     string            `json:"billingAddress"`
	CityName           string            `json:"cityName"`
	StateID            *int              `json:"stateId"`
	CountryCode        string            `json:"countryCode"`
	Address            string            `json:"address"`
	ZipCode            string            `json:"zipCode"`
	BillingZip         string            `json:"billingZip"`
	Email              string            `json:"email"`
	PhoneNumber        string            `json:"phoneNumber"`
	FederalTaxID       string            `json:"federalTaxID"`
	FederalTaxType     string            `json:"federalTaxType"`
	ConsumerType       ConsumerType      `json:"idConsumerType"`
	Cancelled          bool              `json:"cancelated"`
	SapProperties      map[string]any    `json:"sapProperties"`
	Blocked            bool              `json:"blocked"`
	IsInbound          bool              `json:"isInbound"`
	BillingCountryCode string            `json:"billingCountryCode"`
	PaymentMethod      PaymentMethodKind `json:"paymentMethod"`
	PlanType           *int              `json:"planType"`
	BillingSystemID    int               `json:"billingSystemId"`
	BillingStateID     string            `json:"billingStateId"`
	County             string            `json:"county"`
	BillingCity        string            `json:"billingCity"`
}

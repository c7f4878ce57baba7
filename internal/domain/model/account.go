package model

import (
	"strings"

	"billing-user/internal/domain"
)

// PaymentMethodKind is the account's stored way of paying.
type PaymentMethodKind string

const (
	PaymentMethodCC       PaymentMethodKind = "CC"
	PaymentMethodMP       PaymentMethodKind = "MP"
	PaymentMethodTransfer PaymentMethodKind = "TRANSF"
	PaymentMethodNone     PaymentMethodKind = "NONE"
)

func ParsePaymentMethodKind(s string) (PaymentMethodKind, error) {
	switch k := PaymentMethodKind(strings.ToUpper(strings.TrimSpace(s))); k {
	case PaymentMethodCC, PaymentMethodMP, PaymentMethodTransfer:
		return k, nil
	}
	return PaymentMethodNone, domain.ErrInvalidArgument
}

// ConsumerType is the fiscal classification of the account holder.
type ConsumerType string

const (
	ConsumerTypeFinal       ConsumerType = "CF"
	ConsumerTypeRegistered  ConsumerType = "RI"
	ConsumerTypeExempt      ConsumerType = "EXE"
	ConsumerTypeMonotribute ConsumerType = "MT"
	ConsumerTypeForeign     ConsumerType = "RFC"
)

// NormalizeConsumerType maps unknown or empty values to final consumer.
func NormalizeConsumerType(s string) ConsumerType {
	switch ct := ConsumerType(strings.ToUpper(strings.TrimSpace(s))); ct {
	case ConsumerTypeFinal, ConsumerTypeRegistered, ConsumerTypeExempt, ConsumerTypeMonotribute, ConsumerTypeForeign:
		return ct
	}
	return ConsumerTypeFinal
}

// ResponsibleBilling identifies the invoicing system that owns an account.
type ResponsibleBilling int

const (
	ResponsibleBillingMercadoPago  ResponsibleBilling = 1
	ResponsibleBillingQBL          ResponsibleBilling = 3
	ResponsibleBillingGB           ResponsibleBilling = 4
	ResponsibleBillingQuickBookUSA ResponsibleBilling = 9
)

// Account is the billing view of a platform user, identified by its email.
type Account struct {
	ID                     int64
	Email                  string
	PaymentMethod          PaymentMethodKind
	ConsumerType           ConsumerType
	CUIT                   string
	RazonSocial            string
	ResponsibleBilling     ResponsibleBilling
	Language               string
	CurrentBillingCreditID *int64
	OriginInbound          string
	UpgradePending         bool
}

func (a *Account) IsZero() bool { return a == nil || a.ID == 0 }

// AccountProfile carries the fields used to compose customer and admin
// notifications after an agreement.
type AccountProfile struct {
	AccountID          int64
	Email              string
	FirstName          string
	LastName           string
	Language           string
	Phone              string
	Company            string
	Address            string
	City               string
	ZipCode            string
	Country            string
	BillingEmails      []string
	CUIT               string
	ConsumerType       ConsumerType
	PaymentTermDays    int
	BankName           string
	BankAccount        string
	ResponsibleBilling ResponsibleBilling
}

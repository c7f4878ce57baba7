package adapter

import (
	"context"

	"billing-user/internal/domain/model"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the port for the card processor. Cards are passed in
// their encrypted form; implementations decrypt only what they transmit.
type PaymentGateway interface {
	Name() string

	// CreateCreditCardPayment charges amount and returns the authorization number.
	CreateCreditCardPayment(ctx context.Context, amount decimal.Decimal, card *model.CreditCard, accountID int64) (string, error)
	// IsValidCreditCard runs a zero-amount verification of card.
	IsValidCreditCard(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error)
}

// PricingValidator checks a requested agreement total against the
// account-plans pricing service.
type PricingValidator interface {
	IsValidTotal(ctx context.Context, accountName string, req *model.AgreementRequest) (bool, error)
}

// Encrypter is the symmetric encryption contract for card fields.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*DummyGateway)(nil)

// Charge is one recorded DummyGateway charge.
type Charge struct {
	AccountID int64
	Amount    decimal.Decimal
	AuthRef   string
}

// DummyGateway approves every operation and records charges. It backs the
// payment.first_data.dummy setting and local development, so it reports the
// same payment metrics as a real processor.
type DummyGateway struct {
	currency string

	mu      sync.Mutex
	seq     int64
	charges []Charge
}

func NewDummyGateway(currency string) *DummyGateway {
	return &DummyGateway{currency: currency}
}

func (g *DummyGateway) Name() string { return "dummy" }

func (g *DummyGateway) CreateCreditCardPayment(ctx context.Context, amount decimal.Decimal, card *model.CreditCard, accountID int64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	ref := fmt.Sprintf("dummy-%d", g.seq)
	g.charges = append(g.charges, Charge{AccountID: accountID, Amount: amount, AuthRef: ref})
	metrics.IncPayment("approved")
	metrics.AddPaymentRevenue(g.currency, amount)
	return ref, nil
}

func (g *DummyGateway) IsValidCreditCard(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error) {
	metrics.IncCardValidation("valid")
	return true, nil
}

// Charges returns a copy of the recorded charges.
func (g *DummyGateway) Charges() []Charge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Charge(nil), g.charges...)
}

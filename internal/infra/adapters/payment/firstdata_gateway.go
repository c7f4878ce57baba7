package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/resilience"
	"billing-user/internal/infra/metrics"
)

var _ adapter.PaymentGateway = (*FirstDataGateway)(nil)

const (
	txPurchase  = "purchase"
	txAuthorize = "authorize"
)

// FirstDataGateway charges and verifies cards against the First Data REST
// API. Cards arrive encrypted and are decrypted only into the request body.
type FirstDataGateway struct {
	baseURL  string
	apiKey   string
	currency string
	client   *http.Client
	enc      adapter.Encrypter
	breaker  *resilience.Breaker
	log      *zerolog.Logger
}

func NewFirstDataGateway(baseURL, apiKey, currency string, timeout time.Duration, enc adapter.Encrypter, logger *zerolog.Logger) (*FirstDataGateway, error) {
	if baseURL == "" {
		return nil, errors.New("first data base url empty")
	}
	if apiKey == "" {
		return nil, errors.New("first data api key empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FirstDataGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		currency: currency,
		client:   &http.Client{Timeout: timeout},
		enc:      enc,
		breaker: resilience.NewBreaker("firstdata", resilience.DefaultBreakerConfig(), logger, func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrPaymentDeclined)
		}),
		log: logger,
	}, nil
}

func (g *FirstDataGateway) Name() string { return "firstdata" }

type fdCreditCard struct {
	Type           string `json:"type"`
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpDate        string `json:"exp_date"`
	CVV            string `json:"cvv"`
}

type fdRequest struct {
	MerchantRef     string       `json:"merchant_ref"`
	TransactionType string       `json:"transaction_type"`
	Method          string       `json:"method"`
	Amount          string       `json:"amount"`
	CurrencyCode    string       `json:"currency_code"`
	CreditCard      fdCreditCard `json:"credit_card"`
}

type fdResponse struct {
	TransactionStatus string `json:"transaction_status"`
	ValidationStatus  string `json:"validation_status"`
	TransactionID     string `json:"transaction_id"`
	TransactionTag    string `json:"transaction_tag"`
	BankMessage       string `json:"bank_message"`
	GatewayMessage    string `json:"gateway_message"`
}

// CreateCreditCardPayment returns the processor transaction id as the
// authorization number.
func (g *FirstDataGateway) CreateCreditCardPayment(ctx context.Context, amount decimal.Decimal, card *model.CreditCard, accountID int64) (string, error) {
	resp, err := g.send(ctx, txPurchase, amount, card, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentDeclined) {
			metrics.IncPayment("declined")
		} else {
			metrics.IncPayment("error")
		}
		return "", err
	}
	metrics.IncPayment("approved")
	metrics.AddPaymentRevenue(g.currency, amount)
	return resp.TransactionID, nil
}

// IsValidCreditCard performs a zero-amount authorization.
func (g *FirstDataGateway) IsValidCreditCard(ctx context.Context, card *model.CreditCard, accountID int64) (bool, error) {
	_, err := g.send(ctx, txAuthorize, decimal.Zero, card, accountID)
	switch {
	case err == nil:
		metrics.IncCardValidation("valid")
		return true, nil
	case errors.Is(err, domain.ErrPaymentDeclined):
		metrics.IncCardValidation("invalid")
		return false, nil
	default:
		metrics.IncCardValidation("error")
		return false, err
	}
}

func (g *FirstDataGateway) send(ctx context.Context, txType string, amount decimal.Decimal, card *model.CreditCard, accountID int64) (*fdResponse, error) {
	if card == nil {
		return nil, domain.ErrInvalidArgument
	}
	body, err := g.buildRequest(txType, amount, card, accountID)
	if err != nil {
		return nil, err
	}

	var out fdResponse
	err = g.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/transactions", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("apikey", g.apiKey)
		req.Header.Set("Client-Request-Id", uuid.NewString())

		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("first data %s: %w", txType, err)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("first data %s: read body: %w", txType, err)
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("first data %s: http %d", txType, resp.StatusCode)
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("first data %s: decode: %w", txType, err)
		}
		if !strings.EqualFold(out.TransactionStatus, "approved") {
			return fmt.Errorf("%w: %s %s", domain.ErrPaymentDeclined, out.BankMessage, out.GatewayMessage)
		}
		return nil
	})
	if err != nil {
		g.log.Warn().Err(err).Str("tx_type", txType).Int64("account_id", accountID).Msg("first data transaction failed")
		return nil, err
	}
	return &out, nil
}

func (g *FirstDataGateway) buildRequest(txType string, amount decimal.Decimal, card *model.CreditCard, accountID int64) ([]byte, error) {
	number, err := g.enc.Decrypt(card.Number)
	if err != nil {
		return nil, err
	}
	holder, err := g.enc.Decrypt(card.HolderName)
	if err != nil {
		return nil, err
	}
	code, err := g.enc.Decrypt(card.Code)
	if err != nil {
		return nil, err
	}
	req := fdRequest{
		MerchantRef:     fmt.Sprintf("user-%d", accountID),
		TransactionType: txType,
		Method:          "credit_card",
		// minor units
		Amount:       amount.Mul(decimal.NewFromInt(100)).Round(0).String(),
		CurrencyCode: g.currency,
		CreditCard: fdCreditCard{
			Type:           card.CardType,
			CardholderName: holder,
			CardNumber:     number,
			ExpDate:        fmt.Sprintf("%02d%02d", card.ExpirationMonth, card.ExpirationYear%100),
			CVV:            code,
		},
	}
	return json.Marshal(req)
}

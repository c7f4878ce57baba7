//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/infra/metrics"
	"billing-user/internal/infra/security"
)

var testRegistry = func() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	return reg
}()

func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	mfs, err := testRegistry.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func encryptedCard(t *testing.T, enc *security.EncryptionService) *model.CreditCard {
	t.Helper()
	card, err := security.EncryptCard(enc, "4111111111111111", "JANE DOE", "123", 7, 2031, "Visa")
	require.NoError(t, err)
	return card
}

func TestFirstDataGateway_CreateCreditCardPayment(t *testing.T) {
	enc, err := security.NewEncryptionService("0123456789abcdef")
	require.NoError(t, err)

	t.Run("approved charge returns transaction id", func(t *testing.T) {
		var got fdRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transactions", r.URL.Path)
			assert.Equal(t, "key", r.Header.Get("apikey"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_ = json.NewEncoder(w).Encode(fdResponse{TransactionStatus: "approved", TransactionID: "ET12345"})
		}))
		defer srv.Close()

		g, err := NewFirstDataGateway(srv.URL, "key", "USD", time.Second, enc, nil)
		require.NoError(t, err)

		ref, err := g.CreateCreditCardPayment(context.Background(), decimal.RequireFromString("10.00"), encryptedCard(t, enc), 42)
		require.NoError(t, err)
		assert.Equal(t, "ET12345", ref)

		assert.Equal(t, "purchase", got.TransactionType)
		assert.Equal(t, "1000", got.Amount)
		assert.Equal(t, "4111111111111111", got.CreditCard.CardNumber)
		assert.Equal(t, "JANE DOE", got.CreditCard.CardholderName)
		assert.Equal(t, "0731", got.CreditCard.ExpDate)
		assert.Equal(t, "user-42", got.MerchantRef)
	})

	t.Run("declined charge is ErrPaymentDeclined", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(fdResponse{TransactionStatus: "declined", BankMessage: "Insufficient funds"})
		}))
		defer srv.Close()

		g, _ := NewFirstDataGateway(srv.URL, "key", "USD", time.Second, enc, nil)
		_, err := g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(5), encryptedCard(t, enc), 1)
		assert.True(t, errors.Is(err, domain.ErrPaymentDeclined))
	})

	t.Run("server error is a plain failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		g, _ := NewFirstDataGateway(srv.URL, "key", "USD", time.Second, enc, nil)
		_, err := g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(5), encryptedCard(t, enc), 1)
		require.Error(t, err)
		assert.False(t, errors.Is(err, domain.ErrPaymentDeclined))
	})

	t.Run("undecryptable card never reaches the processor", func(t *testing.T) {
		called := false
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
		defer srv.Close()

		g, _ := NewFirstDataGateway(srv.URL, "key", "USD", time.Second, enc, nil)
		_, err := g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(5), &model.CreditCard{Number: "garbage"}, 1)
		assert.True(t, errors.Is(err, domain.ErrDecryptFailed))
		assert.False(t, called)
	})
}

func TestFirstDataGateway_IsValidCreditCard(t *testing.T) {
	enc, _ := security.NewEncryptionService("0123456789abcdef")
	status := "approved"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req fdRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "authorize", req.TransactionType)
		assert.Equal(t, "0", req.Amount)
		_ = json.NewEncoder(w).Encode(fdResponse{TransactionStatus: status})
	}))
	defer srv.Close()

	g, _ := NewFirstDataGateway(srv.URL, "key", "USD", time.Second, enc, nil)

	ok, err := g.IsValidCreditCard(context.Background(), encryptedCard(t, enc), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	status = "declined"
	ok, err = g.IsValidCreditCard(context.Background(), encryptedCard(t, enc), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstDataGateway_RecordsPaymentMetricsOnce(t *testing.T) {
	enc, _ := security.NewEncryptionService("0123456789abcdef")
	status := "approved"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fdResponse{TransactionStatus: status, TransactionID: "T1"})
	}))
	defer srv.Close()
	g, _ := NewFirstDataGateway(srv.URL, "key", "EUR", time.Second, enc, nil)

	approved := counterValue(t, "billing_user_payments_total", "status", "approved")
	declined := counterValue(t, "billing_user_payments_total", "status", "declined")
	revenue := counterValue(t, "billing_user_payments_revenue_total", "currency", "eur")

	_, err := g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(10), encryptedCard(t, enc), 1)
	require.NoError(t, err)
	status = "declined"
	_, err = g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(10), encryptedCard(t, enc), 1)
	require.Error(t, err)

	assert.Equal(t, approved+1, counterValue(t, "billing_user_payments_total", "status", "approved"))
	assert.Equal(t, declined+1, counterValue(t, "billing_user_payments_total", "status", "declined"))
	assert.Equal(t, revenue+10, counterValue(t, "billing_user_payments_revenue_total", "currency", "eur"))
}

func TestDummyGateway(t *testing.T) {
	g := NewDummyGateway("ARS")
	approved := counterValue(t, "billing_user_payments_total", "status", "approved")
	revenue := counterValue(t, "billing_user_payments_revenue_total", "currency", "ars")
	valid := counterValue(t, "billing_user_card_validations_total", "result", "valid")

	ref, err := g.CreateCreditCardPayment(context.Background(), decimal.NewFromInt(10), &model.CreditCard{}, 7)
	require.NoError(t, err)
	assert.Equal(t, "dummy-1", ref)
	require.Len(t, g.Charges(), 1)
	assert.Equal(t, int64(7), g.Charges()[0].AccountID)

	ok, err := g.IsValidCreditCard(context.Background(), &model.CreditCard{}, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, approved+1, counterValue(t, "billing_user_payments_total", "status", "approved"))
	assert.Equal(t, revenue+10, counterValue(t, "billing_user_payments_revenue_total", "currency", "ars"))
	assert.Equal(t, valid+1, counterValue(t, "billing_user_card_validations_total", "result", "valid"))
}

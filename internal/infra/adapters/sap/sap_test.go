//go:build !integration

package sap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-user/internal/domain/model"
	"billing-user/internal/infra/security"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestHTTPClient_SendBilling(t *testing.T) {
	tokens := security.NewTokenManager("secret", "billing-user")
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, billingPath, r.URL.Path)
		claims, err := tokens.ParseFromRequest(r)
		require.NoError(t, err)
		assert.True(t, claims.IsSuperUser)

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL+"/", time.Second, tokens, newTestLogger())
	require.NoError(t, err)

	rec := &model.SapBillingRecord{BillingCreditID: 42, PlanFee: decimal.NewFromInt(15), CardNumber: "1234", IsFirstPurchase: true}
	require.NoError(t, c.SendBilling(context.Background(), rec, "jane@example.com"))

	assert.Equal(t, "jane@example.com", got["userEmail"])
	assert.EqualValues(t, 42, got["billingCreditId"])
	assert.Equal(t, "1234", got["cardNumber"])
	assert.Equal(t, true, got["isFirstPurchase"])
}

func TestHTTPClient_SendBusinessPartner_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, businessPartnerPath, r.URL.Path)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, time.Second, security.NewTokenManager("secret", "billing-user"), newTestLogger())
	require.NoError(t, err)

	err = c.SendBusinessPartner(context.Background(), &model.SapBusinessPartner{ID: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 502")
}

func TestNewHTTPClient_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient("", time.Second, nil, nil)
	require.Error(t, err)
}

type recordingPublisher struct {
	keys     []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestQueueClient_RoutesByRecordKind(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewQueueClient(pub, "sap.billing", "sap.business-partner")

	require.NoError(t, c.SendBilling(context.Background(), &model.SapBillingRecord{BillingCreditID: 1}, "jane@example.com"))
	require.NoError(t, c.SendBusinessPartner(context.Background(), &model.SapBusinessPartner{ID: 9, Email: "jane@example.com"}))

	require.Equal(t, []string{"sap.billing", "sap.business-partner"}, pub.keys)

	var bp model.SapBusinessPartner
	require.NoError(t, json.Unmarshal(pub.payloads[1], &bp))
	assert.EqualValues(t, 9, bp.ID)
}

func TestQueueClient_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	c := NewQueueClient(pub, "b", "p")
	err := c.SendBilling(context.Background(), &model.SapBillingRecord{}, "jane@example.com")
	require.EqualError(t, err, "channel closed")
}

func TestNoopSapClient(t *testing.T) {
	c := NewNoopSapClient(newTestLogger())
	assert.NoError(t, c.SendBilling(context.Background(), &model.SapBillingRecord{}, "x"))
	assert.NoError(t, c.SendBusinessPartner(context.Background(), &model.SapBusinessPartner{}))
}

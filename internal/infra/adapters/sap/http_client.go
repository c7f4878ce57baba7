package sap

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

	"github.com/rs/zerolog"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/resilience"
)

var _ adapter.SapClient = (*HTTPClient)(nil)

const (
	billingPath         = "/billing/createbillingrequest"
	businessPartnerPath = "/businesspartner/createorupdatebusinesspartner"
)

// TokenMinter issues the service token sent to the SAP integration API.
type TokenMinter interface {
	Mint(email string, superuser bool, ttl time.Duration) (string, error)
}

// billingMessage is the wire shape of a billing push.
type billingMessage struct {
	AccountName string `json:"userEmail"`
	*model.SapBillingRecord
}

// HTTPClient posts ERP records to the SAP integration service.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenMinter
	breaker *resilience.Breaker
	log     *zerolog.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenMinter, logger *zerolog.Logger) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, errors.New("sap base url empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		breaker: resilience.NewBreaker("sap_http", resilience.DefaultBreakerConfig(), logger, nil),
		log:     logger,
	}, nil
}

func (c *HTTPClient) SendBilling(ctx context.Context, rec *model.SapBillingRecord, accountName string) error {
	return c.post(ctx, billingPath, billingMessage{AccountName: accountName, SapBillingRecord: rec})
}

func (c *HTTPClient) SendBusinessPartner(ctx context.Context, bp *model.SapBusinessPartner) error {
	return c.post(ctx, businessPartnerPath, bp)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode sap payload: %w", err)
	}
	return c.breaker.Do(func() error {
		token, err := c.tokens.Mint("", true, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("mint service token: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("sap %s: %w", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("sap %s: http %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
		}
		c.log.Debug().Str("path", path).Int("size", len(body)).Msg("sap record posted")
		return nil
	})
}

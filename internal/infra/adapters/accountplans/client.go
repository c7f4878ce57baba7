package accountplans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/resilience"
)

var _ adapter.PricingValidator = (*Client)(nil)

// TokenMinter issues the service token sent to the pricing API.
type TokenMinter interface {
	Mint(email string, superuser bool, ttl time.Duration) (string, error)
}

// Client asks the account-plans service what a plan change should cost.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenMinter
	breaker *resilience.Breaker
	log     *zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenMinter, logger *zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("account plans base url empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		breaker: resilience.NewBreaker("account_plans", resilience.DefaultBreakerConfig(), logger, nil),
		log:     logger,
	}, nil
}

type calculateResponse struct {
	Total              decimal.Decimal `json:"total"`
	DiscountPrepayment decimal.Decimal `json:"discountPrepayment"`
	DiscountPromocode  decimal.Decimal `json:"discountPromocode"`
}

// IsValidTotal compares the requested total with the server-side
// calculation for the account, plan, discount and promocode.
func (c *Client) IsValidTotal(ctx context.Context, accountName string, req *model.AgreementRequest) (bool, error) {
	u := fmt.Sprintf("%s/accounts/%s/newplan/%d/calculate", c.baseURL, url.PathEscape(accountName), req.PlanID)
	q := url.Values{}
	if req.DiscountID > 0 {
		q.Set("discountId", strconv.Itoa(req.DiscountID))
	}
	if req.HasPromocode() {
		q.Set("promocode", strings.TrimSpace(req.Promocode))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var out calculateResponse
	err := c.breaker.Do(func() error {
		token, err := c.tokens.Mint("", true, 5*time.Minute)
		if err != nil {
			return fmt.Errorf("mint service token: %w", err)
		}
		hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		hreq.Header.Set("Authorization", "Bearer "+token)
		hreq.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(hreq)
		if err != nil {
			return fmt.Errorf("account plans calculate: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("account plans calculate: http %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		c.log.Error().Err(err).Int("plan_id", req.PlanID).Msg("account plans calculate failed")
		return false, err
	}
	return out.Total.Equal(req.TotalAmount()), nil
}

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/resilience"
	"billing-user/internal/infra/metrics"
)

var _ adapter.Alerter = (*Slack)(nil)

// Slack posts alerts to an incoming webhook.
type Slack struct {
	webhookURL string
	http       *http.Client
	breaker    *resilience.Breaker
	log        *zerolog.Logger
}

func NewSlack(webhookURL string, timeout time.Duration, logger *zerolog.Logger) (*Slack, error) {
	if webhookURL == "" {
		return nil, errors.New("slack webhook url empty")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Slack{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: timeout},
		breaker:    resilience.NewBreaker("slack", resilience.DefaultBreakerConfig(), logger, nil),
		log:        logger,
	}, nil
}

func (s *Slack) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	err = s.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := s.http.Do(req)
		if err != nil {
			return fmt.Errorf("slack webhook: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("slack webhook: http %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		metrics.IncNotification("slack", "error")
		return err
	}
	metrics.IncNotification("slack", "ok")
	return nil
}

package email

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

	"billing-user/internal/config"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/resilience"
	"billing-user/internal/infra/metrics"
)

var _ adapter.EmailNotifier = (*RelayNotifier)(nil)

// RelayNotifier sends templated emails through the relay HTTP API.
type RelayNotifier struct {
	baseURL       string
	apiKey        string
	from          string
	urlImagesBase string
	admins        []string
	sendAdmin     bool
	registry      *Registry
	http          *http.Client
	breaker       *resilience.Breaker
	log           *zerolog.Logger
}

func NewRelayNotifier(cfg config.EmailConfig, registry *Registry, logger *zerolog.Logger) (*RelayNotifier, error) {
	if cfg.RelayBaseURL == "" {
		return nil, errors.New("relay base url empty")
	}
	if registry == nil {
		return nil, errors.New("email template registry is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelayNotifier{
		baseURL:       strings.TrimRight(cfg.RelayBaseURL, "/"),
		apiKey:        cfg.APIKey,
		from:          cfg.From,
		urlImagesBase: cfg.URLImagesBase,
		admins:        cfg.AdminEmails,
		sendAdmin:     cfg.SendAdminEmail,
		registry:      registry,
		http:          &http.Client{Timeout: timeout},
		breaker:       resilience.NewBreaker("email_relay", resilience.DefaultBreakerConfig(), logger, nil),
		log:           logger,
	}, nil
}

type relayRecipient struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

type relayMessage struct {
	FromEmail  string           `json:"from_email,omitempty"`
	Subject    string           `json:"subject,omitempty"`
	Recipients []relayRecipient `json:"recipients"`
	Model      map[string]any   `json:"model"`
}

func (n *RelayNotifier) SendUpgradeConfirmation(ctx context.Context, notice *model.UpgradeNotice) error {
	kind, ok := customerTemplateKind(notice.PlanCategory)
	if !ok {
		n.log.Warn().Str("plan_category", string(notice.PlanCategory)).Msg("no customer template for plan category")
		return nil
	}
	tmpl, err := n.registry.Lookup(notice.Language, kind)
	if err != nil {
		return err
	}
	return n.send(ctx, "customer", tmpl, customerModel(notice, n.urlImagesBase), []string{notice.Email})
}

func (n *RelayNotifier) SendAdminUpgrade(ctx context.Context, notice *model.AdminUpgradeNotice) error {
	if !n.sendAdmin || len(n.admins) == 0 {
		return nil
	}
	tmpl, err := n.registry.Lookup("", KindAdminUpgrade)
	if err != nil {
		return err
	}
	return n.send(ctx, "admin", tmpl, adminModel(notice, n.urlImagesBase), n.admins)
}

func (n *RelayNotifier) send(ctx context.Context, audience string, tmpl Template, data map[string]any, to []string) error {
	msg := relayMessage{FromEmail: n.from, Subject: tmpl.Subject, Model: data}
	for _, addr := range to {
		msg.Recipients = append(msg.Recipients, relayRecipient{Email: addr, Type: "to"})
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}

	err = n.breaker.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/templates/"+tmpl.ID+"/message", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if n.apiKey != "" {
			req.Header.Set("Authorization", "token "+n.apiKey)
		}
		resp, err := n.http.Do(req)
		if err != nil {
			return fmt.Errorf("relay send: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("relay send: http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
		return nil
	})
	if err != nil {
		metrics.IncNotification("email_"+audience, "error")
		return err
	}
	metrics.IncNotification("email_"+audience, "ok")
	n.log.Debug().Str("template", tmpl.ID).Int("recipients", len(to)).Msg("email sent")
	return nil
}

// NoopNotifier drops notifications. It is used when no relay is configured.
type NoopNotifier struct {
	log *zerolog.Logger
}

func NewNoopNotifier(logger *zerolog.Logger) *NoopNotifier {
	return &NoopNotifier{log: logger}
}

func (n *NoopNotifier) SendUpgradeConfirmation(ctx context.Context, notice *model.UpgradeNotice) error {
	n.log.Debug().Str("plan_category", string(notice.PlanCategory)).Msg("noop upgrade email")
	return nil
}

func (n *NoopNotifier) SendAdminUpgrade(ctx context.Context, notice *model.AdminUpgradeNotice) error {
	n.log.Debug().Int("plan_id", notice.PlanID).Msg("noop admin email")
	return nil
}

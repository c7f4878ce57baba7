package alert

import (
	"context"
	"errors"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/metrics"
)

var _ adapter.Alerter = (*Telegram)(nil)

// telegram messages are capped at 4096 characters
const telegramMaxText = 4096

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to an operations chat.
type Telegram struct {
	bot    messageSender
	chatID int64
	log    *zerolog.Logger
}

func NewTelegram(token string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint, chatID, logger)
}

// NewTelegramWithEndpoint points the bot at a custom API endpoint, in the
// "https://host/bot%s/%s" form.
func NewTelegramWithEndpoint(token, endpoint string, chatID int64, logger *zerolog.Logger) (*Telegram, error) {
	if token == "" {
		return nil, errors.New("telegram token empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id empty")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, chatID: chatID, log: logger}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r := []rune(text); len(r) > telegramMaxText {
		text = string(r[:telegramMaxText-1]) + "…"
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		metrics.IncNotification("telegram", "error")
		return err
	}
	metrics.IncNotification("telegram", "ok")
	return nil
}

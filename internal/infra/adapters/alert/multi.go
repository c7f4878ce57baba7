package alert

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"billing-user/internal/domain/ports/adapter"
)

// Multi fans an alert out to every channel. All channels are attempted and
// their errors joined.
type Multi struct {
	channels []adapter.Alerter
}

func NewMulti(channels ...adapter.Alerter) *Multi {
	return &Multi{channels: channels}
}

func (m *Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, c := range m.channels {
		if err := c.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes alerts to the logger. It is the fallback when no channel is
// configured.
type Log struct {
	log *zerolog.Logger
}

func NewLog(logger *zerolog.Logger) *Log {
	return &Log{log: logger}
}

func (l *Log) Send(ctx context.Context, text string) error {
	l.log.Warn().Str("alert", text).Msg("operational alert")
	return nil
}

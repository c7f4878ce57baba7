package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"billing-user/internal/domain"
	"billing-user/internal/infra/metrics"
)

// BreakerConfig tunes a circuit breaker around one outbound dependency.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Breaker wraps a gobreaker circuit breaker whose state is logged and exported.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// NewBreaker creates a breaker named after the dependency it protects.
// Errors for which isSuccessful returns true do not count as failures; pass
// nil to count every error.
func NewBreaker(name string, cfg BreakerConfig, logger *zerolog.Logger, isSuccessful func(error) bool) *Breaker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			metrics.SetCircuitBreakerState(name, int(to))
		},
	}
	if isSuccessful != nil {
		settings.IsSuccessful = isSuccessful
	}
	metrics.SetCircuitBreakerState(name, int(gobreaker.StateClosed))
	return &Breaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

// Do runs fn through the breaker. An open breaker is reported as
// domain.ErrUpstreamUnavailable.
func (b *Breaker) Do(fn func() error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, b.cb.Name(), err)
	}
	return err
}

// State exposes the current breaker state for health reporting.
func (b *Breaker) State() string { return b.cb.State().String() }

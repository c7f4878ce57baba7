package apiv1

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	ucport "billing-user/internal/domain/ports/usecase"
	"billing-user/internal/infra/logging"
	"billing-user/internal/infra/metrics"
	"billing-user/internal/infra/redis"
	"billing-user/internal/infra/security"
)

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (redis.Quota, error)
}

// Deps are the collaborators of the v1 API. Limiter may be nil.
type Deps struct {
	Agreements ucport.AgreementCreator
	Billing    ucport.BillingManager
	Payments   ucport.PaymentMethodManager
	Tokens     *security.TokenManager
	Limiter    RateLimiter
	RateLimit  int
	RateWindow time.Duration
}

type Server struct {
	agreements ucport.AgreementCreator
	billing    ucport.BillingManager
	payments   ucport.PaymentMethodManager
	tokens     *security.TokenManager
	limiter    RateLimiter
	rateLimit  int
	rateWindow time.Duration
	log        *zerolog.Logger
}

func NewServer(d Deps, logger *zerolog.Logger) *Server {
	return &Server{
		agreements: d.Agreements,
		billing:    d.Billing,
		payments:   d.Payments,
		tokens:     d.Tokens,
		limiter:    d.Limiter,
		rateLimit:  d.RateLimit,
		rateWindow: d.RateWindow,
		log:        logger,
	}
}

// RegisterAPIV1 mounts the account routes on r. Every route requires a
// bearer token for the account in the path or a superuser token.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/accounts/{account}", func(r chi.Router) {
		r.Use(s.authorize)

		r.Get("/billing-information", s.getBillingInformation)
		r.Put("/billing-information", s.putBillingInformation)
		r.Get("/billing-information/invoice-recipients", s.getInvoiceRecipients)
		r.Put("/billing-information/invoice-recipients", s.putInvoiceRecipients)
		r.Get("/payment-methods/current", s.getCurrentPaymentMethod)
		r.Put("/payment-methods/current", s.putCurrentPaymentMethod)
		r.Get("/plans/current", s.getCurrentPlan)
		r.With(s.rateLimited("agreements")).Post("/agreements", s.createAgreement)
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := chi.URLParam(r, "account")
		claims, err := s.tokens.ParseFromRequest(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "Unauthorized"})
			return
		}
		if !claims.CanAccess(account) {
			writeJSON(w, http.StatusForbidden, errorBody{Code: "forbidden", Message: "Forbidden"})
			return
		}
		ctx := logging.WithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimited fails open: a broken limiter must not block billing.
func (s *Server) rateLimited(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil || s.rateLimit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := redis.AccountRouteKey(chi.URLParam(r, "account"), route)
			q, err := s.limiter.Take(r.Context(), key, s.rateLimit, s.rateWindow)
			if err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
				metrics.IncCacheRequest("rate_limit", "error")
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(q.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining()))
			if q.Exceeded() {
				h.Set("Retry-After", strconv.Itoa(q.RetryAfterSeconds()))
				writeJSON(w, http.StatusTooManyRequests, errorBody{Code: "rate_limited", Message: "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"billing-user/internal/config"
)

// RouterOptions configures the root router. Mount registers the versioned
// API on a group that already carries the request timeout.
type RouterOptions struct {
	Logger         *zerolog.Logger
	RequestTimeout time.Duration
	Health         *HealthChecker
	Mount          func(r chi.Router)
}

// NewRouter builds the root chi router: health checks and /metrics outside the
// request timeout, the API inside it.
func NewRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(opts.Logger), Recover(opts.Logger))

	if opts.Health != nil {
		r.Get("/health/live", opts.Health.Liveness)
		r.Get("/health/ready", opts.Health.Readiness)
	}
	r.Handle("/metrics", promhttp.Handler())

	if opts.Mount != nil {
		r.Group(func(r chi.Router) {
			if opts.RequestTimeout > 0 {
				r.Use(Timeout(opts.RequestTimeout))
			}
			opts.Mount(r)
		})
	}
	return r
}

// Server owns the listening http.Server.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		log: logger,
	}
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

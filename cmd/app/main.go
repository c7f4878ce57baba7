// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"billing-user/internal/config"
	"billing-user/internal/domain/ports/adapter"
	"billing-user/internal/infra/adapters/accountplans"
	"billing-user/internal/infra/adapters/alert"
	"billing-user/internal/infra/adapters/email"
	payAdapters "billing-user/internal/infra/adapters/payment"
	"billing-user/internal/infra/adapters/sap"
	"billing-user/internal/infra/api"
	"billing-user/internal/infra/api/apiv1"
	pg "billing-user/internal/infra/db/postgres"
	"billing-user/internal/infra/logging"
	"billing-user/internal/infra/metrics"
	red "billing-user/internal/infra/redis"
	"billing-user/internal/infra/security"
	"billing-user/internal/infra/worker"
	"billing-user/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

const tokenIssuer = "billing-user"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, dummy integrations allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting billing-user")

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go reportPoolStats(ctx, pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Security ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}
	tokens := security.NewTokenManager(cfg.Security.JWTSecret, tokenIssuer)

	// ---- Repositories ----
	accountRepo := pg.NewPostgresAccountRepo(pool)
	billingRepo := pg.NewPostgresBillingRepo(pool)
	promotionRepo := pg.NewPostgresPromotionRepo(pool)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPostgresPlanRepo(pool), redisClient, cfg.Redis.TTL, logger)
	txManager := pg.NewTxManager(pool)

	// ---- Outbound integrations ----
	alerter := buildAlerter(cfg, logger)
	gateway := buildGateway(cfg, encSvc, logger)

	pricing, err := accountplans.NewClient(cfg.AccountPlans.BaseURL, cfg.AccountPlans.Timeout, tokens, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("account plans client")
	}

	sapClient, closeSap := buildSapClient(cfg, tokens, logger)
	defer closeSap()
	sapPool := worker.NewPool(cfg.Sap.Workers, cfg.Sap.QueueSize, logger)
	sapPool.Start(ctx)
	sapDispatcher := worker.NewSapDispatcher(sapPool, sapClient, alerter, cfg.Sap.Timeout, logger)

	notifier := buildNotifier(cfg, logger)

	// ---- Use cases ----
	agreementSvc := usecase.NewAgreementService(usecase.AgreementDeps{
		Accounts:    accountRepo,
		Plans:       planRepo,
		Promotions:  promotionRepo,
		Billing:     billingRepo,
		TxManager:   txManager,
		Idempotency: red.NewIdempotencyStore(redisClient, cfg.Agreements.IdempotencyTTL),
		Gateway:     gateway,
		Pricing:     pricing,
		Encrypter:   encSvc,
		Sap:         sapDispatcher,
		Email:       notifier,
		Alerter:     alerter,
		Locker:      red.NewLocker(redisClient),
	}, usecase.AgreementOptions{
		Currency:          cfg.Payment.Currency,
		LockTTL:           cfg.Agreements.LockTTL,
		SapTimeZoneOffset: cfg.Sap.TimeZoneOffset,
		CustomPlanIDs:     cfg.Sap.CustomPlanTypes,
	}, logger)
	billingUC := usecase.NewBillingUseCase(billingRepo, logger)
	paymentMethodUC := usecase.NewPaymentMethodUseCase(accountRepo, billingRepo, gateway, encSvc, sapDispatcher, alerter, logger)

	// ---- HTTP ----
	v1 := apiv1.NewServer(apiv1.Deps{
		Agreements: agreementSvc,
		Billing:    billingUC,
		Payments:   paymentMethodUC,
		Tokens:     tokens,
		Limiter:    red.NewRateLimiter(redisClient),
		RateLimit:  cfg.Agreements.RateLimit,
		RateWindow: cfg.Agreements.RateWindow,
	}, logger)
	router := api.NewRouter(api.RouterOptions{
		Logger:         logger,
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         api.NewHealthChecker(version, map[string]api.Pinger{"postgres": pool, "redis": redisClient}),
		Mount:          func(r chi.Router) { apiv1.RegisterAPIV1(r, v1) },
	})
	server := api.NewServer(cfg.Server, router, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 20*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	// in-flight ERP pushes finish before the clients close
	sapPool.Stop()
	cancel()
}

func buildAlerter(cfg *config.Config, logger *zerolog.Logger) adapter.Alerter {
	channels := []adapter.Alerter{alert.NewLog(logger)}
	if url := cfg.Alerts.Slack.WebhookURL; url != "" {
		slack, err := alert.NewSlack(url, 10*time.Second, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("slack alerts")
		}
		channels = append(channels, slack)
	}
	if tg := cfg.Alerts.Telegram; tg.Token != "" {
		telegram, err := alert.NewTelegram(tg.Token, tg.ChatID, logger)
		if err != nil {
			// alerts are auxiliary; keep running on slack and logs
			logger.Error().Err(err).Msg("telegram alerts disabled")
		} else {
			channels = append(channels, telegram)
		}
	}
	return alert.NewMulti(channels...)
}

func buildGateway(cfg *config.Config, enc adapter.Encrypter, logger *zerolog.Logger) adapter.PaymentGateway {
	fd := cfg.Payment.FirstData
	if fd.Dummy {
		if !cfg.Runtime.Dev {
			logger.Warn().Msg("payment.first_data.dummy is enabled outside dev mode: every charge is approved")
		}
		return payAdapters.NewDummyGateway(cfg.Payment.Currency)
	}
	gw, err := payAdapters.NewFirstDataGateway(fd.BaseURL, fd.APIKey, cfg.Payment.Currency, fd.Timeout, enc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("first data gateway")
	}
	return gw
}

// buildSapClient returns the ERP client for the configured transport and a
// func that releases it.
func buildSapClient(cfg *config.Config, tokens *security.TokenManager, logger *zerolog.Logger) (adapter.SapClient, func()) {
	switch cfg.Sap.Transport {
	case "amqp":
		pub, err := sap.NewRabbitMQPublisher(cfg.Sap.AMQPURL, cfg.Sap.Exchange, []string{cfg.Sap.BillingQueue, cfg.Sap.PartnerQueue}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("sap amqp publisher")
		}
		return sap.NewQueueClient(pub, cfg.Sap.BillingQueue, cfg.Sap.PartnerQueue), func() { _ = pub.Close() }
	default:
		if cfg.Sap.BaseURL == "" {
			logger.Warn().Msg("sap.base_url empty: ERP records are logged and dropped")
			return sap.NewNoopSapClient(logger), func() {}
		}
		c, err := sap.NewHTTPClient(cfg.Sap.BaseURL, cfg.Sap.Timeout, tokens, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("sap http client")
		}
		return c, func() {}
	}
}

func buildNotifier(cfg *config.Config, logger *zerolog.Logger) adapter.EmailNotifier {
	if cfg.Email.RelayBaseURL == "" {
		logger.Warn().Msg("email.relay_base_url empty: notification emails are logged only")
		return email.NewNoopNotifier(logger)
	}
	registry, err := email.LoadRegistry(cfg.Email.TemplatesFile, cfg.Email.DefaultLocale)
	if err != nil {
		logger.Fatal().Err(err).Msg("email templates")
	}
	n, err := email.NewRelayNotifier(cfg.Email, registry, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("email relay")
	}
	return n
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RequestTimeout bounds a whole request, agreement creation included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
	JWTSecret     string `yaml:"jwt_secret"`
}

type FirstDataConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// Dummy skips the processor and approves every operation.
	Dummy bool `yaml:"dummy"`
}

type PaymentConfig struct {
	FirstData FirstDataConfig `yaml:"first_data"`
	Currency  string          `yaml:"currency"`
}

type AccountPlansConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SapConfig struct {
	Transport       string        `yaml:"transport"` // http | amqp
	BaseURL         string        `yaml:"base_url"`
	AMQPURL         string        `yaml:"amqp_url"`
	Exchange        string        `yaml:"exchange"`
	BillingQueue    string        `yaml:"billing_queue"`
	PartnerQueue    string        `yaml:"partner_queue"`
	Timeout         time.Duration `yaml:"timeout"`
	TimeZoneOffset  int           `yaml:"time_zone_offset"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	CustomPlanTypes []int         `yaml:"custom_plan_types"`
}

type EmailConfig struct {
	RelayBaseURL   string        `yaml:"relay_base_url"`
	APIKey         string        `yaml:"api_key"`
	From           string        `yaml:"from"`
	AdminEmails    []string      `yaml:"admin_emails"`
	URLImagesBase  string        `yaml:"url_images_base"`
	TemplatesFile  string        `yaml:"templates_file"`
	Timeout        time.Duration `yaml:"timeout"`
	DefaultLocale  string        `yaml:"default_locale"`
	SendAdminEmail bool          `yaml:"send_admin_email"`
}

type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type AlertsConfig struct {
	Slack    SlackConfig    `yaml:"slack"`
	Telegram TelegramConfig `yaml:"telegram"`
}

type AgreementsConfig struct {
	LockTTL        time.Duration `yaml:"lock_ttl"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Security     SecurityConfig     `yaml:"security"`
	Payment      PaymentConfig      `yaml:"payment"`
	AccountPlans AccountPlansConfig `yaml:"account_plans"`
	Sap          SapConfig          `yaml:"sap"`
	Email        EmailConfig        `yaml:"email"`
	Alerts       AlertsConfig       `yaml:"alerts"`
	Agreements   AgreementsConfig   `yaml:"agreements"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the yaml file at path, applies .env and environment
// overrides, fills defaults and validates the result.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes raw yaml and applies overrides and defaults.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"DATABASE_URL", &cfg.Database.URL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"BILLING_ENCRYPTION_KEY", &cfg.Security.EncryptionKey},
		{"BILLING_JWT_SECRET", &cfg.Security.JWTSecret},
		{"SLACK_WEBHOOK_URL", &cfg.Alerts.Slack.WebhookURL},
		{"RELAY_API_KEY", &cfg.Email.APIKey},
		{"FIRSTDATA_API_KEY", &cfg.Payment.FirstData.APIKey},
		{"TELEGRAM_ALERT_TOKEN", &cfg.Alerts.Telegram.Token},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.env); ok && v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv("TELEGRAM_ALERT_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Alerts.Telegram.ChatID = id
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	cfg.Server.ReadTimeout = orDuration(cfg.Server.ReadTimeout, 15*time.Second)
	cfg.Server.WriteTimeout = orDuration(cfg.Server.WriteTimeout, 60*time.Second)
	cfg.Server.RequestTimeout = orDuration(cfg.Server.RequestTimeout, 45*time.Second)
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = orDuration(cfg.Redis.TTL, time.Hour)

	cfg.Payment.FirstData.Timeout = orDuration(cfg.Payment.FirstData.Timeout, 30*time.Second)
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "USD"
	}
	cfg.AccountPlans.Timeout = orDuration(cfg.AccountPlans.Timeout, 10*time.Second)

	if cfg.Sap.Transport == "" {
		cfg.Sap.Transport = "http"
	}
	if cfg.Sap.BillingQueue == "" {
		cfg.Sap.BillingQueue = "sap.billing"
	}
	if cfg.Sap.PartnerQueue == "" {
		cfg.Sap.PartnerQueue = "sap.business-partner"
	}
	cfg.Sap.Timeout = orDuration(cfg.Sap.Timeout, 10*time.Second)
	if cfg.Sap.TimeZoneOffset == 0 {
		cfg.Sap.TimeZoneOffset = -3
	}
	if cfg.Sap.Workers <= 0 {
		cfg.Sap.Workers = 4
	}
	if cfg.Sap.QueueSize <= 0 {
		cfg.Sap.QueueSize = 256
	}
	if len(cfg.Sap.CustomPlanTypes) == 0 {
		cfg.Sap.CustomPlanTypes = []int{0, 9, 17}
	}

	cfg.Email.Timeout = orDuration(cfg.Email.Timeout, 10*time.Second)
	if cfg.Email.DefaultLocale == "" {
		cfg.Email.DefaultLocale = "en"
	}

	cfg.Agreements.LockTTL = orDuration(cfg.Agreements.LockTTL, 2*time.Minute)
	cfg.Agreements.IdempotencyTTL = orDuration(cfg.Agreements.IdempotencyTTL, 24*time.Hour)
	if cfg.Agreements.RateLimit <= 0 {
		cfg.Agreements.RateLimit = 5
	}
	cfg.Agreements.RateWindow = orDuration(cfg.Agreements.RateWindow, time.Minute)
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Security.JWTSecret == "" {
		return errors.New("security.jwt_secret is required")
	}
	switch n := len(c.Security.EncryptionKey); n {
	case 16, 24, 32:
	default:
		return fmt.Errorf("security.encryption_key must be 16, 24 or 32 bytes, got %d", n)
	}
	switch c.Sap.Transport {
	case "http", "amqp":
	default:
		return fmt.Errorf("sap.transport must be http or amqp, got %q", c.Sap.Transport)
	}
	if c.Sap.Transport == "amqp" && c.Sap.AMQPURL == "" {
		return errors.New("sap.amqp_url is required when sap.transport is amqp")
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

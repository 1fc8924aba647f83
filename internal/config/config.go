package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP
	HTTPPort   string
	CronSecret string
	AppBaseURL string

	// Database
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceMonthly  string
	StripePriceAnnual   string
	BoostDuration       time.Duration

	// Proximity alerts
	AlertLookback   time.Duration
	AlertMaxCatchup time.Duration
	CronEnabled     bool
	CronSpec        string
	MaintenanceSpec string
	TelegramToken   string

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		// Defaults
		HTTPPort:        "8080",
		AppBaseURL:      "https://krewup.net",
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		BoostDuration:   7 * 24 * time.Hour,
		AlertLookback:   10 * time.Minute,
		AlertMaxCatchup: 24 * time.Hour,
		CronSpec:        "@every 10m",
		MaintenanceSpec: "@every 1h",
		LogLevel:        "info",
	}

	required := []struct {
		env  string
		dest *string
	}{
		{"POSTGRES_DSN", &cfg.PostgresDSN},
		{"CRON_SECRET", &cfg.CronSecret},
		{"STRIPE_SECRET_KEY", &cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret},
		{"STRIPE_PRICE_PRO_MONTHLY", &cfg.StripePriceMonthly},
		{"STRIPE_PRICE_PRO_ANNUAL", &cfg.StripePriceAnnual},
	}
	for _, r := range required {
		*r.dest = os.Getenv(r.env)
		if *r.dest == "" {
			return nil, fmt.Errorf("%s is required", r.env)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPPort = port
	}

	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		cfg.AppBaseURL = baseURL
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		db, err := strconv.Atoi(redisDB)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}

	durations := []struct {
		env  string
		dest *time.Duration
	}{
		{"BOOST_DURATION", &cfg.BoostDuration},
		{"ALERT_LOOKBACK", &cfg.AlertLookback},
		{"ALERT_MAX_CATCHUP", &cfg.AlertMaxCatchup},
	}
	for _, d := range durations {
		raw := os.Getenv(d.env)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dest = v
	}

	if enabled := os.Getenv("CRON_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, fmt.Errorf("invalid CRON_ENABLED: %w", err)
		}
		cfg.CronEnabled = b
	}

	if spec := os.Getenv("CRON_SPEC"); spec != "" {
		cfg.CronSpec = spec
	}

	if spec := os.Getenv("MAINTENANCE_SPEC"); spec != "" {
		cfg.MaintenanceSpec = spec
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PostgresDSN == "" {
		return fmt.Errorf("postgres DSN is empty")
	}

	if c.CronSecret == "" {
		return fmt.Errorf("cron secret is empty")
	}

	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is empty")
	}

	if c.StripePriceMonthly == c.StripePriceAnnual {
		return fmt.Errorf("monthly and annual price IDs must differ")
	}

	if c.AlertLookback < time.Minute {
		return fmt.Errorf("alert lookback too small: %v", c.AlertLookback)
	}

	if c.AlertMaxCatchup < c.AlertLookback {
		return fmt.Errorf("alert max catchup (%v) is shorter than lookback (%v)", c.AlertMaxCatchup, c.AlertLookback)
	}

	if c.BoostDuration <= 0 {
		return fmt.Errorf("boost duration must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// TelegramEnabled reports whether alert pushes to Telegram are configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

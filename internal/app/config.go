package app

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	PGDSN      string `envconfig:"PG_DSN" required:"true"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"sellerdesk_session"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	AnalyticsCacheTTL  time.Duration `envconfig:"ANALYTICS_CACHE_TTL" default:"10m"`
	DocumentLockTTL    time.Duration `envconfig:"DOCUMENT_LOCK_TTL" default:"10s"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	BarcodePrefix      int           `envconfig:"BARCODE_PREFIX" default:"890"`

	SweepCron         string `envconfig:"SWEEP_CRON" default:"*/15 * * * *"`
	SweepBatch        int    `envconfig:"SWEEP_BATCH" default:"500"`
	WorkerConcurrency int    `envconfig:"WORKER_CONCURRENCY" default:"5"`

	IdempotencyRetention time.Duration `envconfig:"IDEMPOTENCY_RETENTION" default:"168h"`

	OperatorUserIDs []int64 `envconfig:"OPERATOR_USER_IDS"`
}

// LoadConfig reads configuration from a local .env file, when present, and
// the process environment. Variables already set in the environment win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, errors.New("rate limit per minute must be positive")
	}
	if cfg.BarcodePrefix < 0 || cfg.BarcodePrefix > 999 {
		return nil, errors.New("barcode prefix must be between 0 and 999")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN         string        `env:"DATABASE_DSN,required=true"`
	RedisURL            string        `env:"REDIS_URL,required=true"`
	ResendAPIKey        string        `env:"RESEND_API_KEY,required=true"`
	EmailFrom           string        `env:"EMAIL_FROM,default=Salein <invoices@olonts.site>"`
	APIPort             int           `env:"API_PORT,default=8080"`
	LogLevel            string        `env:"LOG_LEVEL,default=info"`
	MaxRetries          int           `env:"REMINDER_MAX_RETRIES,default=3"`
	PollInterval        time.Duration `env:"DISPATCH_POLL_INTERVAL,default=1m"`
	PollLimit           int           `env:"DISPATCH_POLL_LIMIT,default=100"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=8"`
	SendTimeout         time.Duration `env:"EMAIL_SEND_TIMEOUT,default=15s"`
	RateLimitPerSec     int           `env:"EMAIL_RATE_LIMIT_PER_SEC,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

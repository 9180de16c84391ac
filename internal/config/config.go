// Package config содержит логику чтения конфигурации сервиса маркетплейса миль.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress      = "localhost:8080"
	defaultJWTSecret       = "milesmarket-secret"
	defaultJWTTTL          = 24 * time.Hour
	defaultAirlineCacheTTL = 10 * time.Minute
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL"`

	// Пустые адреса отключают соответствующий канал уведомлений или кэш.
	AMQPURL          string        `env:"AMQP_URL"`
	NotifyWebhookURL string        `env:"NOTIFY_WEBHOOK_URL"`
	RedisAddr        string        `env:"REDIS_ADDR"`
	AirlineCacheTTL  time.Duration `env:"AIRLINE_CACHE_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", defaultJWTSecret, "secret for signing access tokens")
	flag.DurationVar(&cfg.JWTTTL, "t", defaultJWTTTL, "access token lifetime")
	flag.StringVar(&cfg.AMQPURL, "q", "", "AMQP broker URL for notifications")
	flag.StringVar(&cfg.NotifyWebhookURL, "w", "", "webhook URL for notifications")
	flag.StringVar(&cfg.RedisAddr, "c", "", "redis address for airline cache")
	flag.DurationVar(&cfg.AirlineCacheTTL, "l", defaultAirlineCacheTTL, "airline cache TTL")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = defaultJWTTTL
	}
	if cfg.AirlineCacheTTL <= 0 {
		cfg.AirlineCacheTTL = defaultAirlineCacheTTL
	}

	return cfg, nil
}

package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	RabbitMQURL        string `env:"RABBITMQ_URL"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
	AdminUsername      string `env:"ADMIN_USERNAME,default=admin"`
	AdminPassword      string `env:"ADMIN_PASSWORD,required=true"`
	DispatchTimeoutSec int    `env:"DISPATCH_TIMEOUT_SEC,default=10"`
	DefaultRateLimit   int    `env:"DEFAULT_RATE_LIMIT,default=100"`
	DefaultRateWindow  int    `env:"DEFAULT_RATE_WINDOW_SEC,default=60"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

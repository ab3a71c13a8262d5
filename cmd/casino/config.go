package main

import (
	"log/slog"
	"time"

	"github.com/fastprodman/casinobot/internal/config"
)

type casinoConfig struct {
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"    envDefault:"INFO"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	HTTP      config.HTTPConfig
	Postgres  config.PostgresConfig
	Redis     config.RedisConfig
	CryptoPay config.CryptoPayConfig
	Telegram  config.TelegramConfig
	Limits    config.LimitsConfig
}

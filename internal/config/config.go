package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/casinobot/internal/money"
)

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS"     envDefault:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS"     envDefault:"5"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME"  envDefault:"30m"`
}

// RedisConfig is optional: without a URL chat sessions are kept in process memory.
type RedisConfig struct {
	URL string `env:"REDIS_URL" envDefault:""`
}

type HTTPConfig struct {
	Port        uint16     `env:"APP_PORT"     envDefault:"8080"`
	CORSOrigins StringList `env:"CORS_ORIGINS" envDefault:"*"`
}

type CryptoPayConfig struct {
	Token   string        `env:"CRYPTO_PAY_TOKEN"`
	BaseURL string        `env:"CRYPTO_PAY_URL"     envDefault:"https://pay.crypt.bot/api"`
	Asset   string        `env:"PAY_ASSET"          envDefault:"USDT"`
	Timeout time.Duration `env:"CRYPTO_PAY_TIMEOUT" envDefault:"15s"`
}

type TelegramConfig struct {
	BotToken       string        `env:"BOT_TOKEN"`
	WebAppURL      string        `env:"WEB_APP_URL"`
	AdminIDs       IDList        `env:"ADMIN_IDS"         envDefault:""`
	SessionTTL     time.Duration `env:"SESSION_TTL"       envDefault:"10m"`
	InitDataMaxAge time.Duration `env:"INIT_DATA_MAX_AGE" envDefault:"24h"`
}

// LimitsConfig bounds user supplied amounts.
type LimitsConfig struct {
	MinDeposit  money.Amount `env:"MIN_DEPOSIT"  envDefault:"1"`
	MinWithdraw money.Amount `env:"MIN_WITHDRAW" envDefault:"1"`
	MinBet      money.Amount `env:"MIN_BET"      envDefault:"0.1"`
	MaxBet      money.Amount `env:"MAX_BET"      envDefault:"100"`
}

func (l LimitsConfig) Validate() error {
	if l.MinBet > l.MaxBet {
		return fmt.Errorf("MIN_BET %s exceeds MAX_BET %s", l.MinBet, l.MaxBet)
	}

	return nil
}

// IDList is a comma separated list of Telegram user ids.
type IDList []int64

func (l *IDList) UnmarshalText(b []byte) error {
	out := IDList{}

	for _, part := range strings.Split(string(b), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return fmt.Errorf("parse id %q: %w", part, err)
		}

		out = append(out, id)
	}

	*l = out

	return nil
}

func (l IDList) Contains(id int64) bool {
	return slices.Contains(l, id)
}

// StringList is a comma separated list of strings.
type StringList []string

func (l *StringList) UnmarshalText(b []byte) error {
	out := StringList{}

	for _, part := range strings.Split(string(b), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	*l = out

	return nil
}

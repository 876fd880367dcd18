package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/refbali/referralbot/internal/config"
)

type botConfig struct {
	Token           string        `env:"TELEGRAM_TOKEN"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`
	Postgres        config.PostgresConfig
	Bonus           config.BonusConfig
}

func setEnvDefaults() {
	defaults := map[string]string{
		"APP_LOG_LEVEL":        "INFO",
		"APP_SHUTDOWN_TIMEOUT": "10s",
		"BONUS_RATE_PERCENT":   strconv.FormatInt(config.DefaultRatePercent, 10),
		"BONUS_HOLD_PERIOD":    config.DefaultHoldPeriod.String(),
	}

	for k, v := range defaults {
		_, ok := os.LookupEnv(k)
		if !ok {
			os.Setenv(k, v)
		}
	}
}

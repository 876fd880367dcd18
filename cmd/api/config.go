package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/refbali/referralbot/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"API_PORT"`
	AdminToken      string        `env:"ADMIN_TOKEN"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`
	Postgres        config.PostgresConfig
	Bonus           config.BonusConfig
}

// setEnvDefaults fills optional variables before envconf.Load, which
// treats unset tagged variables as errors.
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

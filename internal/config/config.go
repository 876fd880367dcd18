// Package config holds the env-tagged configuration sections shared by
// the service entrypoints.
package config

import "time"

type PostgresConfig struct {
	DSN string `env:"PG_DSN"`
}

// BonusConfig carries the referral-bonus policy knobs.
//
// RatePercent is the share of a referred purchase credited to the
// inviter. HoldPeriod is how long an accrual stays pending before it
// vests, covering the shop's 14-day return window.
type BonusConfig struct {
	RatePercent int64         `env:"BONUS_RATE_PERCENT"`
	HoldPeriod  time.Duration `env:"BONUS_HOLD_PERIOD"`
}

// Defaults pre-fills policy values so deployments only override what
// they need. envconf treats tagged-but-unset as an error, so entrypoints
// set the env defaults before loading.
const (
	DefaultRatePercent = 5
	DefaultHoldPeriod  = 14 * 24 * time.Hour
)

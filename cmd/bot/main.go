package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/refbali/referralbot/internal/bot"
	"github.com/refbali/referralbot/internal/infra/logging"
	"github.com/refbali/referralbot/internal/infra/pgutils"
	"github.com/refbali/referralbot/internal/services/bonus"
	"github.com/refbali/referralbot/internal/services/referral"
	"github.com/refbali/referralbot/pkg/envconf"
	"github.com/refbali/referralbot/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running bot: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	_ = godotenv.Load()
	setEnvDefaults()

	cfg := new(botConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		return dbConns.Close()
	})

	bonusSrv := bonus.New(dbConns, cfg.Bonus)
	referralSrv := referral.New(dbConns)

	b, err := bot.New(cfg.Token, bonusSrv, referralSrv)
	if err != nil {
		return fmt.Errorf("init bot: %w", err)
	}

	slog.Info("bot started")

	err = b.Run(ctx)
	if err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// Package bot is the chat surface: a long-polling Telegram bot whose
// command handlers call the referral and bonus services. All state lives
// behind those services; handlers receive everything they use explicitly.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/refbali/referralbot/internal/services/bonus"
	"github.com/refbali/referralbot/internal/services/referral"
)

type Bot struct {
	api      *tgbotapi.BotAPI
	bonus    *bonus.Service
	referral *referral.Service
	botName  string
}

func New(token string, bonusSvc *bonus.Service, referralSvc *referral.Service) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init bot api: %w", err)
	}

	slog.Info("bot authorized", "username", api.Self.UserName)

	return &Bot{
		api:      api,
		bonus:    bonusSvc,
		referral: referralSvc,
		botName:  api.Self.UserName,
	}, nil
}

// Run processes updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)

	_, err := b.api.Send(msg)
	if err != nil {
		slog.Error("send message failed", "error", err, "chat_id", chatID)
	}
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/refbali/referralbot/internal/repos/accounts"
)

const helpText = `Available commands:
/start - Register and get your promo code
/promo - Show your promo code
/bonuses - Check your bonus balance
/history - Show recent bonus entries
/invite - Get your invite link
/help - Show this message`

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	slog.Info("bot command", "command", msg.Command(), "chat_id", chatID)

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "promo":
		b.handlePromo(ctx, msg)
	case "invite":
		b.handleInvite(ctx, msg)
	case "bonuses":
		b.handleBonuses(ctx, msg)
	case "history":
		b.handleHistory(ctx, msg)
	case "help":
		b.reply(chatID, helpText)
	default:
		b.reply(chatID, "Unknown command. Try /help.")
	}
}

func displayName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	if msg.From.UserName != "" {
		return msg.From.UserName
	}

	return strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
}

// handleStart registers the sender, and with a REF_<code> deep-link
// argument also links the referral. Linking problems never fail the
// registration itself; the user just gets told their code didn't count.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	acc, _, err := b.referral.GetOrCreateAccount(ctx, chatID, displayName(msg))
	if err != nil {
		slog.Error("registration failed", "error", err, "chat_id", chatID)
		b.reply(chatID, "Something went wrong during registration. Please try again later.")

		return
	}

	welcome := fmt.Sprintf("Welcome, %s!\nYour promo code: %s\nInvite friends: %s",
		acc.DisplayName, acc.PromoCode, b.inviteLink(acc.PromoCode))

	refArg := strings.TrimSpace(msg.CommandArguments())
	if refArg == "" {
		b.reply(chatID, welcome)
		return
	}

	note := b.attachReferral(ctx, acc, refArg)
	b.reply(chatID, welcome+"\n"+note)
}

// attachReferral resolves a deep-link code and links it, returning the
// user-facing outcome line.
func (b *Bot) attachReferral(ctx context.Context, acc *accounts.Account, refArg string) string {
	code, ok := parseRefCode(refArg)
	if !ok {
		return fmt.Sprintf("Referral code %s is not valid.", refArg)
	}

	inviter, err := b.referral.ResolveInviter(ctx, code)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			return fmt.Sprintf("Referral code %s is not valid.", refArg)
		}

		slog.Error("resolve inviter failed", "error", err, "chat_id", acc.ChatID)

		return "Could not process the referral code right now."
	}

	err = b.referral.LinkReferral(ctx, acc.ID, inviter.ID)
	switch {
	case err == nil:
		return fmt.Sprintf("You joined with %s's code. Welcome aboard!", inviter.DisplayName)
	case errors.Is(err, accounts.ErrSelfReferral):
		return "You cannot use your own promo code."
	case errors.Is(err, accounts.ErrAlreadyLinked):
		return "You already joined with a referral code earlier."
	default:
		slog.Error("link referral failed", "error", err, "chat_id", acc.ChatID)

		return "Could not process the referral code right now."
	}
}

func (b *Bot) handlePromo(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	acc, err := b.requireAccount(ctx, chatID)
	if err != nil {
		return
	}

	b.reply(chatID, fmt.Sprintf("Your promo code: %s\nInvite friends: %s",
		acc.PromoCode, b.inviteLink(acc.PromoCode)))
}

func (b *Bot) handleInvite(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	acc, err := b.requireAccount(ctx, chatID)
	if err != nil {
		return
	}

	b.reply(chatID, fmt.Sprintf("Invite friends: %s", b.inviteLink(acc.PromoCode)))
}

func (b *Bot) handleBonuses(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	acc, err := b.requireAccount(ctx, chatID)
	if err != nil {
		return
	}

	bal, err := b.bonus.GetBalance(ctx, acc.ID)
	if err != nil {
		slog.Error("get balance failed", "error", err, "chat_id", chatID)
		b.reply(chatID, "Could not fetch your bonuses right now.")

		return
	}

	stats, err := b.bonus.ReferralStats(ctx, acc.ID)
	if err != nil {
		slog.Error("referral stats failed", "error", err, "chat_id", chatID)
		b.reply(chatID, "Could not fetch your bonuses right now.")

		return
	}

	b.reply(chatID, fmt.Sprintf(
		"You invited: %d friends\nTheir purchases: %s IDR\n\n"+
			"Available: %s IDR\nPending: %s IDR\nEarned this week: %s IDR\nEarned total: %s IDR",
		stats.ReferralCount,
		formatAmount(stats.PurchaseVolume),
		formatAmount(bal.Available),
		formatAmount(bal.Pending),
		formatAmount(bal.Weekly),
		formatAmount(bal.Total),
	))
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	acc, err := b.requireAccount(ctx, chatID)
	if err != nil {
		return
	}

	entries, err := b.bonus.History(ctx, acc.ID, 15)
	if err != nil {
		slog.Error("get history failed", "error", err, "chat_id", chatID)
		b.reply(chatID, "Could not fetch your bonus history right now.")

		return
	}

	if len(entries) == 0 {
		b.reply(chatID, "No bonus history yet. Invite friends with /invite!")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent bonus history:\n")

	for _, e := range entries {
		sign := ""
		if e.Amount > 0 {
			sign = "+"
		}

		fmt.Fprintf(&sb, "%s  %s%s IDR (%s)\n",
			e.CreatedAt.Format("02.01.2006"), sign, formatAmount(e.Amount), e.Status)
	}

	b.reply(chatID, sb.String())
}

// requireAccount resolves the sender's account, prompting for /start
// when there is none. The error return only signals "already handled".
func (b *Bot) requireAccount(ctx context.Context, chatID int64) (*accounts.Account, error) {
	acc, err := b.referral.GetAccountByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			b.reply(chatID, "Please use /start first.")
			return nil, err
		}

		slog.Error("account lookup failed", "error", err, "chat_id", chatID)
		b.reply(chatID, "Something went wrong. Please try again later.")

		return nil, err
	}

	return acc, nil
}

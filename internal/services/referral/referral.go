// Package referral manages account identity and the inviter graph:
// get-or-create registration with promo-code generation, promo-code
// resolution, and the one-shot referral link. Invite chains are a forest;
// the single AlreadyLinked check is all the cycle prevention needed,
// since an edge is set once and never rewritten.
package referral

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/refbali/referralbot/internal/repos/accounts"
	pgaccounts "github.com/refbali/referralbot/internal/repos/accounts/postgres"
	"github.com/refbali/referralbot/pkg/promo"
)

// promoAttempts bounds collision retries on generated codes. Fallback
// codes carry 8 random hex-ish chars, so two misses in a row already
// means something is wrong with the store.
const promoAttempts = 5

type Service struct {
	accounts accounts.Accounts
}

func New(dbx *sql.DB) *Service {
	return &Service{accounts: pgaccounts.New(dbx)}
}

// GetOrCreateAccount finds the account registered for chatID or creates
// one with a fresh promo code. The bool reports whether an account was
// created. Idempotent per chatID: concurrent first registrations collapse
// onto the row that won the unique index.
func (s *Service) GetOrCreateAccount(ctx context.Context, chatID int64, displayName string) (*accounts.Account, bool, error) {
	acc, err := s.accounts.GetByChatID(ctx, chatID)
	if err == nil {
		return acc, false, nil
	}

	if !errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, false, fmt.Errorf("lookup account: %w", err)
	}

	code := promo.FromDisplayName(displayName)

	for attempt := 1; attempt <= promoAttempts; attempt++ {
		acc, err = s.accounts.Create(ctx, chatID, displayName, code)
		if err == nil {
			slog.Info("account created", "chat_id", chatID, "promo_code", acc.PromoCode)

			return acc, true, nil
		}

		switch {
		case errors.Is(err, accounts.ErrChatIDTaken):
			// Lost a registration race; the other writer's row wins.
			acc, err = s.accounts.GetByChatID(ctx, chatID)
			if err != nil {
				return nil, false, fmt.Errorf("refetch after race: %w", err)
			}

			return acc, false, nil
		case errors.Is(err, accounts.ErrPromoCodeTaken):
			code = promo.Random()
		default:
			return nil, false, fmt.Errorf("create account: %w", err)
		}
	}

	return nil, false, fmt.Errorf("create account: promo code collisions exhausted %d attempts", promoAttempts)
}

// ResolveInviter looks an account up by promo code;
// accounts.ErrAccountNotFound when no such code exists.
func (s *Service) ResolveInviter(ctx context.Context, promoCode string) (*accounts.Account, error) {
	acc, err := s.accounts.GetByPromoCode(ctx, promoCode)
	if err != nil {
		return nil, fmt.Errorf("resolve inviter: %w", err)
	}

	return acc, nil
}

// LinkReferral attaches inviter to account permanently. Fails with
// accounts.ErrSelfReferral or accounts.ErrAlreadyLinked; no partial
// state either way.
func (s *Service) LinkReferral(ctx context.Context, accountID, inviterID int64) error {
	err := s.accounts.SetInviter(ctx, accountID, inviterID)
	if err != nil {
		return fmt.Errorf("link referral: %w", err)
	}

	return nil
}

// GetAccountByChatID is the chat surface's identity lookup.
func (s *Service) GetAccountByChatID(ctx context.Context, chatID int64) (*accounts.Account, error) {
	acc, err := s.accounts.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get account by chat id: %w", err)
	}

	return acc, nil
}

// GetAccount is a plain id lookup for the admin surface.
func (s *Service) GetAccount(ctx context.Context, id int64) (*accounts.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return acc, nil
}

// ListAccounts returns every account, oldest first.
func (s *Service) ListAccounts(ctx context.Context) ([]accounts.Account, error) {
	list, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return list, nil
}

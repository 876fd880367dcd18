package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refbali/referralbot/internal/repos/accounts"
)

func (r *accountsRepo) Create(ctx context.Context, chatID int64, displayName, promoCode string) (*accounts.Account, error) {
	var a accounts.Account

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO accounts (chat_id, display_name, promo_code)
		VALUES ($1, $2, $3)
		RETURNING `+accountColumns+`
	`, chatID, displayName, promoCode).Scan(
		&a.ID, &a.ChatID, &a.DisplayName, &a.PromoCode, &a.InvitedBy, &a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			switch pgErr.ConstraintName {
			case "accounts_promo_code_key":
				return nil, accounts.ErrPromoCodeTaken
			case "accounts_chat_id_key":
				return nil, accounts.ErrChatIDTaken
			}
		}

		return nil, fmt.Errorf("insert account: %w", err)
	}

	return &a, nil
}

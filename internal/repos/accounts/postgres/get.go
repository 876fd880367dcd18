package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/refbali/referralbot/internal/repos/accounts"
)

const accountColumns = `id, chat_id, display_name, promo_code, invited_by, created_at`

func scanAccount(row *sql.Row) (*accounts.Account, error) {
	var a accounts.Account

	err := row.Scan(&a.ID, &a.ChatID, &a.DisplayName, &a.PromoCode, &a.InvitedBy, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}

		return nil, fmt.Errorf("scan account: %w", err)
	}

	return &a, nil
}

func (r *accountsRepo) GetByChatID(ctx context.Context, chatID int64) (*accounts.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE chat_id = $1
	`, chatID))
}

func (r *accountsRepo) GetByID(ctx context.Context, id int64) (*accounts.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id))
}

func (r *accountsRepo) GetByPromoCode(ctx context.Context, promoCode string) (*accounts.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE promo_code = $1
	`, promoCode))
}

func (r *accountsRepo) List(ctx context.Context) ([]accounts.Account, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var list []accounts.Account

	for rows.Next() {
		var a accounts.Account

		err = rows.Scan(&a.ID, &a.ChatID, &a.DisplayName, &a.PromoCode, &a.InvitedBy, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}

		list = append(list, a)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return list, nil
}

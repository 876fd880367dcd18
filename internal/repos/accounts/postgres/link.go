package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refbali/referralbot/internal/repos/accounts"
)

// SetInviter assigns the inviter exactly once. The conditional UPDATE
// keeps re-linking impossible without a prior read: zero rows affected
// means either a set inviter or a missing account, distinguished after
// the fact.
func (r *accountsRepo) SetInviter(ctx context.Context, accountID, inviterID int64) error {
	if accountID == inviterID {
		return accounts.ErrSelfReferral
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET invited_by = $2
		WHERE id = $1
		  AND invited_by IS NULL
	`, accountID, inviterID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation: inviter gone
			return accounts.ErrAccountNotFound
		}

		return fmt.Errorf("set inviter: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		_, gerr := r.GetByID(ctx, accountID)
		if gerr != nil {
			if errors.Is(gerr, accounts.ErrAccountNotFound) {
				return accounts.ErrAccountNotFound
			}

			return fmt.Errorf("recheck account: %w", gerr)
		}

		return accounts.ErrAlreadyLinked
	}

	return nil
}

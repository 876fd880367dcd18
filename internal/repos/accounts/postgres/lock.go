package accounts

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/refbali/referralbot/internal/repos/accounts"
)

// Lock takes the account's row lock so balance-affecting writes within
// the transaction serialize per account.
func (r *accountsRepo) Lock(tx *sql.Tx, id int64) error {
	var locked int64

	err := tx.QueryRow(`
		SELECT id
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accounts.ErrAccountNotFound
		}

		return fmt.Errorf("lock account: %w", err)
	}

	return nil
}

// InviterOf reads invited_by within the caller's transaction; nil means
// the account joined without a referral.
func (r *accountsRepo) InviterOf(tx *sql.Tx, accountID int64) (*int64, error) {
	var invitedBy *int64

	err := tx.QueryRow(`
		SELECT invited_by
		FROM accounts
		WHERE id = $1
	`, accountID).Scan(&invitedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}

		return nil, fmt.Errorf("get inviter: %w", err)
	}

	return invitedBy, nil
}

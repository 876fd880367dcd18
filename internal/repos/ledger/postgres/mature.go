package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

// MaturePending promotes the account's pending entries older than the
// holding period to available and reports how many were promoted.
// Idempotent: a second run with no newly eligible entries updates zero
// rows.
func (r *ledgerRepo) MaturePending(tx *sql.Tx, accountID int64, holdingPeriod time.Duration) (int64, error) {
	res, err := tx.Exec(`
		UPDATE ledger_entries
		SET status = 'available'
		WHERE account_id = $1
		  AND status = 'pending'
		  AND created_at <= now() - make_interval(secs => $2)
	`, accountID, holdingPeriod.Seconds())
	if err != nil {
		return 0, fmt.Errorf("mature pending: %w", err)
	}

	promoted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return promoted, nil
}

package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/refbali/referralbot/internal/repos/ledger"
)

// The COALESCE keeps empty histories at zero instead of NULL, so a brand
// new account balances out without a special case.

func (r *ledgerRepo) SumByStatus(tx *sql.Tx, accountID int64, status ledger.Status) (int64, error) {
	var sum int64

	err := tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND status = $2
	`, accountID, string(status)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum by status: %w", err)
	}

	return sum, nil
}

// SumAccruedSince totals positive entries from `since` on. Deductions are
// excluded: earnings statistics count what was accrued, not what is left.
func (r *ledgerRepo) SumAccruedSince(tx *sql.Tx, accountID int64, since time.Time) (int64, error) {
	var sum int64

	err := tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND amount > 0
		  AND created_at >= $2
	`, accountID, since).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum accrued since: %w", err)
	}

	return sum, nil
}

func (r *ledgerRepo) SumAccruedTotal(tx *sql.Tx, accountID int64) (int64, error) {
	var sum int64

	err := tx.QueryRow(`
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND amount > 0
	`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum accrued total: %w", err)
	}

	return sum, nil
}

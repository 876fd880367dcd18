package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refbali/referralbot/internal/repos/ledger"
)

// Append inserts one immutable entry. Status is derived from the sign:
// positive accruals start pending and vest later; payouts and other
// non-positive amounts are settled immediately.
func (r *ledgerRepo) Append(tx *sql.Tx, accountID, amount int64, operation, description string) (int64, error) {
	var id int64

	err := tx.QueryRow(`
		INSERT INTO ledger_entries (account_id, amount, status, operation, description)
		VALUES ($1, $2, CASE WHEN $2 > 0 THEN 'pending' ELSE 'available' END, $3, $4)
		RETURNING id
	`, accountID, amount, operation, description).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return 0, ledger.ErrAccountNotFound
		}

		return 0, fmt.Errorf("insert entry: %w", err)
	}

	return id, nil
}

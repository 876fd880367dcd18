package purchases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/refbali/referralbot/internal/repos/purchases"
)

var _ purchases.Purchases = (*purchasesRepo)(nil)

type purchasesRepo struct{ db *sql.DB }

func New(db *sql.DB) *purchasesRepo {
	return &purchasesRepo{db: db}
}

func (r *purchasesRepo) Insert(tx *sql.Tx, accountID, amount int64, externalRef string) (int64, error) {
	var id int64

	err := tx.QueryRow(`
		INSERT INTO purchases (account_id, amount, external_ref)
		VALUES ($1, $2, $3)
		RETURNING id
	`, accountID, amount, externalRef).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation on external_ref
				return 0, purchases.ErrDuplicatePurchase
			case "23503": // foreign_key_violation
				return 0, purchases.ErrAccountNotFound
			}
		}

		return 0, fmt.Errorf("insert purchase: %w", err)
	}

	return id, nil
}

func (r *purchasesRepo) AttachBonusEntry(tx *sql.Tx, purchaseID, entryID int64) error {
	_, err := tx.Exec(`
		UPDATE purchases
		SET bonus_entry_id = $2
		WHERE id = $1
	`, purchaseID, entryID)
	if err != nil {
		return fmt.Errorf("attach bonus entry: %w", err)
	}

	return nil
}

// VolumeByInviter sums purchases made by the inviter's referrals, for
// the referral statistics shown to users and admins.
func (r *purchasesRepo) VolumeByInviter(ctx context.Context, inviterID int64) (int64, error) {
	var volume int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(p.amount), 0)
		FROM purchases p
		JOIN accounts a ON a.id = p.account_id
		WHERE a.invited_by = $1
	`, inviterID).Scan(&volume)
	if err != nil {
		return 0, fmt.Errorf("volume by inviter: %w", err)
	}

	return volume, nil
}

func (r *purchasesRepo) ListByAccount(ctx context.Context, accountID int64) ([]purchases.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, amount, external_ref, bonus_entry_id, created_at
		FROM purchases
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var list []purchases.Purchase

	for rows.Next() {
		var p purchases.Purchase

		err = rows.Scan(&p.ID, &p.AccountID, &p.Amount, &p.ExternalRef, &p.BonusEntryID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}

		list = append(list, p)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	return list, nil
}

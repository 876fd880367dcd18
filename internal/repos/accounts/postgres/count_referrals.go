package accounts

import (
	"context"
	"fmt"
)

func (r *accountsRepo) CountReferrals(ctx context.Context, inviterID int64) (int64, error) {
	var count int64

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM accounts
		WHERE invited_by = $1
	`, inviterID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}

	return count, nil
}

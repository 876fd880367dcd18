// Package ledger defines the append-only bonus ledger: signed immutable
// entries whose only mutable field is the pending→available status flip
// performed by maturation.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("account not found")

type Status string

const (
	StatusPending   Status = "pending"
	StatusAvailable Status = "available"
)

// Operation labels recorded on entries. Negative adjustments keep
// distinct labels so the audit trail tells a payout from a forfeit.
const (
	OpReferralAccrual = "referral_accrual"
	OpPayout          = "payout"
	OpForfeit         = "forfeit"
	OpReduction       = "reduction"
	OpAdjustment      = "adjustment"
)

type Entry struct {
	ID          int64
	AccountID   int64
	Amount      int64
	Status      Status
	Operation   string
	Description string
	CreatedAt   time.Time
}

// AuditRow is the denormalized projection consumed by the spreadsheet
// export; not used by any balance computation.
type AuditRow struct {
	EntryID     int64
	ChatID      int64
	DisplayName string
	PromoCode   string
	Amount      int64
	Status      Status
	Operation   string
	Description string
	CreatedAt   time.Time
}

type Ledger interface {
	Append(tx *sql.Tx, accountID, amount int64, operation, description string) (int64, error)
	MaturePending(tx *sql.Tx, accountID int64, holdingPeriod time.Duration) (int64, error)
	SumByStatus(tx *sql.Tx, accountID int64, status Status) (int64, error)
	SumAccruedSince(tx *sql.Tx, accountID int64, since time.Time) (int64, error)
	SumAccruedTotal(tx *sql.Tx, accountID int64) (int64, error)
	Recent(ctx context.Context, accountID int64, limit int) ([]Entry, error)
	AuditRows(ctx context.Context) ([]AuditRow, error)
}

package purchases

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrDuplicatePurchase is returned when the external reference was seen
// before. Purchase ingestion is at-most-once: replays must not produce a
// second accrual.
var ErrDuplicatePurchase = errors.New("duplicate purchase")

var ErrAccountNotFound = errors.New("account not found")

type Purchase struct {
	ID           int64
	AccountID    int64
	Amount       int64
	ExternalRef  string
	BonusEntryID *int64
	CreatedAt    time.Time
}

type Purchases interface {
	Insert(tx *sql.Tx, accountID, amount int64, externalRef string) (int64, error)
	AttachBonusEntry(tx *sql.Tx, purchaseID, entryID int64) error
	VolumeByInviter(ctx context.Context, inviterID int64) (int64, error)
	ListByAccount(ctx context.Context, accountID int64) ([]Purchase, error)
}

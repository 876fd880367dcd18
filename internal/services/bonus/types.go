package bonus

import "errors"

var (
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrNothingToPayOut     = errors.New("nothing to pay out")
	ErrInvalidAmount       = errors.New("invalid amount")
)

// Balance is the derived snapshot of an account's ledger. Available and
// Pending are status-tagged sums; Weekly and Total count accruals only,
// so deductions never shrink the statistics.
type Balance struct {
	Available int64
	Pending   int64
	Weekly    int64
	Total     int64
}

// PurchaseInput describes one referred purchase. ExternalRef is the
// caller's idempotency key; replaying the same ref accrues nothing.
type PurchaseInput struct {
	AccountID   int64
	Amount      int64
	ExternalRef string
}

// PurchaseResult reports what a purchase produced. BonusAmount is zero
// when the purchaser has no inviter or the computed bonus rounds to
// nothing.
type PurchaseResult struct {
	PurchaseID   int64
	InviterID    *int64
	BonusAmount  int64
	BonusEntryID *int64
}

// ReferralStats is the invite summary shown on the chat and admin
// surfaces.
type ReferralStats struct {
	ReferralCount  int64
	PurchaseVolume int64
}

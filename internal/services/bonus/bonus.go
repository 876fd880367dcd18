// Package bonus is the ledger engine: it turns referred purchases into
// pending accruals on the inviter's ledger, promotes vested entries, and
// derives every balance view reported anywhere in the system. All
// balance-affecting flows run in single database transactions; per-account
// serialization comes from the account row lock, not in-process state.
package bonus

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/refbali/referralbot/internal/config"
	"github.com/refbali/referralbot/internal/infra/pgutils"
	"github.com/refbali/referralbot/internal/repos/accounts"
	pgaccounts "github.com/refbali/referralbot/internal/repos/accounts/postgres"
	"github.com/refbali/referralbot/internal/repos/ledger"
	pgledger "github.com/refbali/referralbot/internal/repos/ledger/postgres"
	"github.com/refbali/referralbot/internal/repos/purchases"
	pgpurchases "github.com/refbali/referralbot/internal/repos/purchases/postgres"
)

const weeklyWindow = 7 * 24 * time.Hour

type Service struct {
	db        *sql.DB
	accounts  accounts.Accounts
	entries   ledger.Ledger
	purchases purchases.Purchases

	ratePercent int64
	holdPeriod  time.Duration
}

func New(dbx *sql.DB, cfg config.BonusConfig) *Service {
	return &Service{
		db:          dbx,
		accounts:    pgaccounts.New(dbx),
		entries:     pgledger.New(dbx),
		purchases:   pgpurchases.New(dbx),
		ratePercent: cfg.RatePercent,
		holdPeriod:  cfg.HoldPeriod,
	}
}

// RecordPurchase stores a referred purchase and accrues the inviter's
// bonus in one transaction:
//
// 1) Ensure the purchasing account exists.
// 2) Insert the purchase (duplicate external ref -> ErrDuplicatePurchase,
//    nothing accrued).
// 3) Resolve the purchaser's inviter; no inviter means no bonus.
// 4) Append a pending accrual of ratePercent of the amount to the
//    INVITER's ledger and link it to the purchase.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (*PurchaseResult, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("purchase amount must be positive: %w", ErrInvalidAmount)
	}

	res := new(PurchaseResult)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Exists(tx, in.AccountID)
		if err != nil {
			return fmt.Errorf("check account exists: %w", err)
		}

		purchaseID, err := s.purchases.Insert(tx, in.AccountID, in.Amount, in.ExternalRef)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		res.PurchaseID = purchaseID

		inviterID, err := s.accounts.InviterOf(tx, in.AccountID)
		if err != nil {
			return fmt.Errorf("resolve inviter: %w", err)
		}

		if inviterID == nil {
			return nil
		}

		res.InviterID = inviterID

		bonusAmount := in.Amount * s.ratePercent / 100
		if bonusAmount <= 0 {
			return nil
		}

		desc := fmt.Sprintf("%d%% bonus for referred purchase %s", s.ratePercent, in.ExternalRef)

		entryID, err := s.entries.Append(tx, *inviterID, bonusAmount, ledger.OpReferralAccrual, desc)
		if err != nil {
			return fmt.Errorf("append accrual: %w", err)
		}

		err = s.purchases.AttachBonusEntry(tx, purchaseID, entryID)
		if err != nil {
			return fmt.Errorf("link purchase to accrual: %w", err)
		}

		res.BonusAmount = bonusAmount
		res.BonusEntryID = &entryID

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record purchase: %w", err)
	}

	return res, nil
}

// GetBalance matures vested entries and derives the snapshot in the same
// transaction, so available/pending always reflect the current holding
// state. Accounts with no history return all zeros.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (Balance, error) {
	var bal Balance

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Exists(tx, accountID)
		if err != nil {
			return fmt.Errorf("check account exists: %w", err)
		}

		_, err = s.entries.MaturePending(tx, accountID, s.holdPeriod)
		if err != nil {
			return fmt.Errorf("mature pending: %w", err)
		}

		bal, err = s.summarize(tx, accountID)
		if err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return bal, nil
}

func (s *Service) summarize(tx *sql.Tx, accountID int64) (Balance, error) {
	var bal Balance
	var err error

	bal.Available, err = s.entries.SumByStatus(tx, accountID, ledger.StatusAvailable)
	if err != nil {
		return Balance{}, fmt.Errorf("sum available: %w", err)
	}

	bal.Pending, err = s.entries.SumByStatus(tx, accountID, ledger.StatusPending)
	if err != nil {
		return Balance{}, fmt.Errorf("sum pending: %w", err)
	}

	bal.Weekly, err = s.entries.SumAccruedSince(tx, accountID, time.Now().UTC().Add(-weeklyWindow))
	if err != nil {
		return Balance{}, fmt.Errorf("sum weekly: %w", err)
	}

	bal.Total, err = s.entries.SumAccruedTotal(tx, accountID)
	if err != nil {
		return Balance{}, fmt.Errorf("sum total: %w", err)
	}

	return bal, nil
}

// History returns the account's most recent entries, newest first.
func (s *Service) History(ctx context.Context, accountID int64, limit int) ([]ledger.Entry, error) {
	if limit <= 0 {
		limit = 15
	}

	entries, err := s.entries.Recent(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	return entries, nil
}

// PayOutAll drains the full available balance with a "payout" audit
// label and returns the amount paid.
func (s *Service) PayOutAll(ctx context.Context, accountID int64) (int64, error) {
	return s.drain(ctx, accountID, ledger.OpPayout, "full payout of available balance")
}

// Forfeit removes the available balance without paying it out. Same
// ledger effect as PayOutAll, distinct audit label.
func (s *Service) Forfeit(ctx context.Context, accountID int64) (int64, error) {
	return s.drain(ctx, accountID, ledger.OpForfeit, "available balance forfeited")
}

// drain runs the locked deduct-everything flow:
//
// 1) Lock the account row so a racing accrual or payout serializes.
// 2) Mature vested entries, then sum the available balance.
// 3) Append one negative entry for the full amount.
func (s *Service) drain(ctx context.Context, accountID int64, operation, description string) (int64, error) {
	var paid int64

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Lock(tx, accountID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		_, err = s.entries.MaturePending(tx, accountID, s.holdPeriod)
		if err != nil {
			return fmt.Errorf("mature pending: %w", err)
		}

		available, err := s.entries.SumByStatus(tx, accountID, ledger.StatusAvailable)
		if err != nil {
			return fmt.Errorf("sum available: %w", err)
		}

		if available <= 0 {
			return ErrNothingToPayOut
		}

		_, err = s.entries.Append(tx, accountID, -available, operation, description)
		if err != nil {
			return fmt.Errorf("append deduction: %w", err)
		}

		paid = available

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", operation, err)
	}

	return paid, nil
}

// Reduce deducts amount from the available balance, rejecting the whole
// operation when the balance cannot cover it. Nothing is appended on
// rejection.
func (s *Service) Reduce(ctx context.Context, accountID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("reduction must be positive: %w", ErrInvalidAmount)
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.accounts.Lock(tx, accountID)
		if err != nil {
			return fmt.Errorf("lock account: %w", err)
		}

		_, err = s.entries.MaturePending(tx, accountID, s.holdPeriod)
		if err != nil {
			return fmt.Errorf("mature pending: %w", err)
		}

		available, err := s.entries.SumByStatus(tx, accountID, ledger.StatusAvailable)
		if err != nil {
			return fmt.Errorf("sum available: %w", err)
		}

		if amount > available {
			return ErrInsufficientBalance
		}

		_, err = s.entries.Append(tx, accountID, -amount, ledger.OpReduction, "manual balance reduction")
		if err != nil {
			return fmt.Errorf("append deduction: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("reduce balance: %w", err)
	}

	return nil
}

// ReferralStats reports how many accounts this account invited and how
// much those referrals purchased.
func (s *Service) ReferralStats(ctx context.Context, accountID int64) (ReferralStats, error) {
	count, err := s.accounts.CountReferrals(ctx, accountID)
	if err != nil {
		return ReferralStats{}, fmt.Errorf("count referrals: %w", err)
	}

	volume, err := s.purchases.VolumeByInviter(ctx, accountID)
	if err != nil {
		return ReferralStats{}, fmt.Errorf("purchase volume: %w", err)
	}

	return ReferralStats{ReferralCount: count, PurchaseVolume: volume}, nil
}

// Purchases lists the account's recorded purchases, newest first.
func (s *Service) Purchases(ctx context.Context, accountID int64) ([]purchases.Purchase, error) {
	list, err := s.purchases.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	return list, nil
}

// AuditRows exposes the denormalized export projection.
func (s *Service) AuditRows(ctx context.Context) ([]ledger.AuditRow, error) {
	rows, err := s.entries.AuditRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit rows: %w", err)
	}

	return rows, nil
}

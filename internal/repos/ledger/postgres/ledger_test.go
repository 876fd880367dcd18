package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/refbali/referralbot/internal/infra/pgtestutil"
	"github.com/refbali/referralbot/internal/repos/ledger"
)

func seedAccount(t *testing.T, db *sql.DB, chatID int64) int64 {
	t.Helper()

	var id int64

	err := db.QueryRow(`
		INSERT INTO accounts (chat_id, display_name, promo_code)
		VALUES ($1, 'User', 'CODE' || $1::text)
		RETURNING id
	`, chatID).Scan(&id)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}

	return id
}

// seedEntry inserts directly so tests control created_at; Append never
// backdates.
func seedEntry(t *testing.T, db *sql.DB, accountID, amount int64, status string, age time.Duration) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO ledger_entries (account_id, amount, status, operation, created_at)
		VALUES ($1, $2, $3, 'referral_accrual', now() - make_interval(secs => $4))
	`, accountID, amount, status, age.Seconds())
	if err != nil {
		t.Fatalf("seed entry: %v", err)
	}
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	fn(tx)

	err = tx.Commit()
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestLedger_Append_StatusFromSign(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 1)

	tests := []struct {
		name       string
		amount     int64
		wantStatus string
	}{
		{name: "positive_is_pending", amount: 50000, wantStatus: "pending"},
		{name: "negative_is_available", amount: -10000, wantStatus: "available"},
		{name: "zero_is_available", amount: 0, wantStatus: "available"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entryID int64

			inTx(t, db, func(tx *sql.Tx) {
				id, err := repo.Append(tx, accountID, tt.amount, ledger.OpAdjustment, "test")
				if err != nil {
					t.Fatalf("Append: %v", err)
				}
				entryID = id
			})

			var status string

			err := db.QueryRow(`SELECT status FROM ledger_entries WHERE id = $1`, entryID).Scan(&status)
			if err != nil {
				t.Fatalf("read status: %v", err)
			}

			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestLedger_Append_MissingAccount(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	_, err = repo.Append(tx, 9999, 100, ledger.OpAdjustment, "test")
	if err != ledger.ErrAccountNotFound {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestLedger_MaturePending_Idempotent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 1)
	hold := 14 * 24 * time.Hour

	seedEntry(t, db, accountID, 50000, "pending", 15*24*time.Hour) // past holding
	seedEntry(t, db, accountID, 30000, "pending", 24*time.Hour)    // fresh
	seedEntry(t, db, accountID, 20000, "available", 30*24*time.Hour)

	inTx(t, db, func(tx *sql.Tx) {
		promoted, err := repo.MaturePending(tx, accountID, hold)
		if err != nil {
			t.Fatalf("MaturePending: %v", err)
		}
		if promoted != 1 {
			t.Fatalf("promoted = %d, want 1", promoted)
		}
	})

	// Second run with no newly eligible entries promotes nothing.
	inTx(t, db, func(tx *sql.Tx) {
		promoted, err := repo.MaturePending(tx, accountID, hold)
		if err != nil {
			t.Fatalf("MaturePending again: %v", err)
		}
		if promoted != 0 {
			t.Fatalf("second run promoted = %d, want 0", promoted)
		}
	})
}

func TestLedger_Sums(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 1)
	otherID := seedAccount(t, db, 2)

	seedEntry(t, db, accountID, 50000, "available", 20*24*time.Hour)
	seedEntry(t, db, accountID, 30000, "pending", 24*time.Hour)
	seedEntry(t, db, accountID, -10000, "available", 12*time.Hour)
	seedEntry(t, db, otherID, 70000, "available", time.Hour) // unrelated account

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	available, err := repo.SumByStatus(tx, accountID, ledger.StatusAvailable)
	if err != nil {
		t.Fatalf("SumByStatus(available): %v", err)
	}
	if available != 40000 {
		t.Errorf("available = %d, want 40000", available)
	}

	pending, err := repo.SumByStatus(tx, accountID, ledger.StatusPending)
	if err != nil {
		t.Fatalf("SumByStatus(pending): %v", err)
	}
	if pending != 30000 {
		t.Errorf("pending = %d, want 30000", pending)
	}

	// Deduction is excluded from accrual statistics; the 20-day-old
	// accrual falls outside the weekly window.
	weekly, err := repo.SumAccruedSince(tx, accountID, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("SumAccruedSince: %v", err)
	}
	if weekly != 30000 {
		t.Errorf("weekly = %d, want 30000", weekly)
	}

	total, err := repo.SumAccruedTotal(tx, accountID)
	if err != nil {
		t.Fatalf("SumAccruedTotal: %v", err)
	}
	if total != 80000 {
		t.Errorf("total = %d, want 80000", total)
	}

	if weekly > total {
		t.Errorf("weekly %d exceeds total %d", weekly, total)
	}
}

func TestLedger_Sums_EmptyHistory(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 1)

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()

	for name, fn := range map[string]func() (int64, error){
		"available": func() (int64, error) { return repo.SumByStatus(tx, accountID, ledger.StatusAvailable) },
		"pending":   func() (int64, error) { return repo.SumByStatus(tx, accountID, ledger.StatusPending) },
		"weekly": func() (int64, error) {
			return repo.SumAccruedSince(tx, accountID, time.Now().Add(-7*24*time.Hour))
		},
		"total": func() (int64, error) { return repo.SumAccruedTotal(tx, accountID) },
	} {
		got, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != 0 {
			t.Errorf("%s = %d, want 0 for empty history", name, got)
		}
	}
}

func TestLedger_Recent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 1)

	seedEntry(t, db, accountID, 100, "available", 3*time.Hour)
	seedEntry(t, db, accountID, 200, "available", 2*time.Hour)
	seedEntry(t, db, accountID, 300, "pending", time.Hour)

	entries, err := repo.Recent(context.Background(), accountID, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Amount != 300 || entries[1].Amount != 200 {
		t.Errorf("wrong order: got %d, %d", entries[0].Amount, entries[1].Amount)
	}
}

func TestLedger_AuditRows(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	repo := New(db)
	accountID := seedAccount(t, db, 7)

	seedEntry(t, db, accountID, 100, "available", 2*time.Hour)
	seedEntry(t, db, accountID, -50, "available", time.Hour)

	rows, err := repo.AuditRows(context.Background())
	if err != nil {
		t.Fatalf("AuditRows: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.ChatID != 7 || first.PromoCode != "CODE7" || first.Amount != 100 {
		t.Errorf("unexpected first row: %+v", first)
	}
}

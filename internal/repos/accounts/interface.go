package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAlreadyLinked   = errors.New("account already has an inviter")
	ErrSelfReferral    = errors.New("account cannot be its own inviter")
	ErrPromoCodeTaken  = errors.New("promo code already taken")
	ErrChatIDTaken     = errors.New("chat id already registered")
)

type Account struct {
	ID          int64
	ChatID      int64
	DisplayName string
	PromoCode   string
	InvitedBy   *int64
	CreatedAt   time.Time
}

type Accounts interface {
	GetByChatID(ctx context.Context, chatID int64) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByPromoCode(ctx context.Context, promoCode string) (*Account, error)
	Create(ctx context.Context, chatID int64, displayName, promoCode string) (*Account, error)
	Exists(tx *sql.Tx, id int64) error
	Lock(tx *sql.Tx, id int64) error
	InviterOf(tx *sql.Tx, accountID int64) (*int64, error)
	SetInviter(ctx context.Context, accountID, inviterID int64) error
	List(ctx context.Context) ([]Account, error)
	CountReferrals(ctx context.Context, inviterID int64) (int64, error)
}

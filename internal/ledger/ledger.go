// Package ledger defines the Ledger Store contract: durable balances plus the financial and
// game records that the settlement engine writes.
//
// Every method is atomic on its own. Implementations must make AdjustBalance a single guarded
// increment and MarkTransactionCompleted a single pending->completed transition so that
// concurrent callers for the same user or reference linearize in the store.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fastprodman/casinobot/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrDuplicateReference  = errors.New("duplicate reference")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyCompleted    = errors.New("transaction already completed")
	ErrTransactionFailed   = errors.New("transaction failed")

	// ErrStore marks infrastructure failures of the store itself.
	ErrStore = errors.New("ledger store failure")
)

type TxType string

const (
	TxDeposit  TxType = "deposit"
	TxWithdraw TxType = "withdraw"
	TxBet      TxType = "bet"
	TxPayout   TxType = "payout"
)

type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
	StatusFailed    TxStatus = "failed"
)

type Account struct {
	UserID       uint64
	Username     string
	Balance      money.Amount
	CreatedAt    time.Time
	LastActiveAt time.Time
}

type Transaction struct {
	ID           int64
	UserID       uint64
	Type         TxType
	Amount       money.Amount
	Status       TxStatus
	ReferenceID  string // empty means none; unique otherwise
	ReferenceURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type GameRound struct {
	ID         uuid.UUID
	UserID     uint64
	Game       string
	Bet        money.Amount
	Win        money.Amount
	Multiplier decimal.Decimal
	Outcome    json.RawMessage
	CreatedAt  time.Time
}

// Stats aggregates a user's rounds. AvgRTP is the mean of win/bet per round.
type Stats struct {
	Games    int64
	TotalBet money.Amount
	TotalWin money.Amount
	AvgRTP   decimal.Decimal
}

// AdminStats aggregates transactions of all users. Deposit and withdrawal sums only include
// completed records.
type AdminStats struct {
	Users        int64
	Deposits     money.Amount
	Withdrawals  money.Amount
	Transactions int64
}

type Store interface {
	// UpsertUserIfAbsent creates the account with a zero balance or refreshes its activity.
	// It never resets an existing balance.
	UpsertUserIfAbsent(ctx context.Context, userID uint64, username string) (Account, error)
	GetAccount(ctx context.Context, userID uint64) (Account, error)
	GetBalance(ctx context.Context, userID uint64) (money.Amount, error)
	// AdjustBalance applies delta and returns the new balance, or ErrInsufficientFunds with no
	// effect when the result would be negative.
	AdjustBalance(ctx context.Context, userID uint64, delta money.Amount) (money.Amount, error)

	RecordTransaction(ctx context.Context, rec Transaction) (int64, error)
	GetTransaction(ctx context.Context, referenceID string) (Transaction, error)
	MarkTransactionCompleted(ctx context.Context, referenceID string) (Transaction, error)
	MarkTransactionFailed(ctx context.Context, referenceID string) (Transaction, error)
	// CompleteDeposit marks the pending deposit completed and credits its owner as one unit.
	CompleteDeposit(ctx context.Context, referenceID string) (Transaction, money.Amount, error)

	RecordGameRound(ctx context.Context, round GameRound) error
	// SettleRound credits round.Win and records the round as one unit.
	SettleRound(ctx context.Context, round GameRound) (money.Amount, error)

	// QueryRecentStats aggregates rounds newer than window. A zero window means all time.
	QueryRecentStats(ctx context.Context, userID uint64, window time.Duration) (Stats, error)
	QueryAdminStats(ctx context.Context, window time.Duration) (AdminStats, error)
}

// IsDomainError reports whether err is one of the contract's expected outcomes rather than an
// infrastructure failure.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrInsufficientFunds, ErrDuplicateReference,
		ErrTransactionNotFound, ErrAlreadyCompleted, ErrTransactionFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

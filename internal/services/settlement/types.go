package settlement

import (
	"errors"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/games"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
)

// ErrInvalidAmount is returned for amounts outside the configured limits. The wrapping error
// names the violated limit.
var ErrInvalidAmount = errors.New("invalid amount")

type BetResult struct {
	Round      ledger.GameRound
	Outcome    games.Outcome
	NewBalance money.Amount
}

type DepositInvoice struct {
	InvoiceID string
	PayURL    string
	Amount    money.Amount
}

type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositCompleted DepositStatus = "completed"
	DepositExpired   DepositStatus = "expired"
)

type DepositResult struct {
	Status DepositStatus
	Amount money.Amount
	// AlreadySettled is set when an earlier confirmation did the credit.
	AlreadySettled bool
	// NewBalance is only known to the confirmation that credited.
	NewBalance money.Amount
}

type WithdrawResult struct {
	Check      gateway.Check
	Amount     money.Amount
	NewBalance money.Amount
}

type Profile struct {
	Account ledger.Account
	Stats   ledger.Stats
}

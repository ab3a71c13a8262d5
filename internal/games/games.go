// Package games computes outcomes and payouts for the house games.
//
// Everything here is pure: the caller injects the randomness source, so a seeded generator
// reproduces a round exactly.
package games

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fastprodman/casinobot/internal/money"
	"github.com/shopspring/decimal"
)

var ErrUnknownGame = errors.New("unknown game")

// Rand is the randomness a round consumes. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

type Variant string

const (
	Slots    Variant = "slots"
	Roulette Variant = "roulette"
)

// ParseVariant maps a client game name onto a Variant. An empty name means slots.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Slots):
		return Slots, nil
	case string(Roulette):
		return Roulette, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
	}
}

func (v Variant) Valid() bool {
	return v == Slots || v == Roulette
}

// Outcome is the result of one round. Details is variant specific and is stored verbatim with
// the round record.
type Outcome struct {
	Variant    Variant         `json:"game"`
	Details    any             `json:"details"`
	Multiplier decimal.Decimal `json:"multiplier"`
	WinAmount  money.Amount    `json:"win_amount"`
	IsWin      bool            `json:"is_win"`
}

// Play runs one round of variant for bet.
func Play(variant Variant, bet money.Amount, rng Rand) (Outcome, error) {
	switch variant {
	case Slots:
		return playSlots(bet, rng), nil
	case Roulette:
		return playRoulette(bet, rng), nil
	default:
		return Outcome{}, fmt.Errorf("%w: %q", ErrUnknownGame, variant)
	}
}

// Payout is the single rule turning a multiplier into a win amount.
func Payout(bet money.Amount, multiplier decimal.Decimal) money.Amount {
	return bet.MulFloor(multiplier)
}

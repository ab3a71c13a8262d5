package games

import (
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/shopspring/decimal"
)

const (
	Cherry  = "🍒"
	Lemon   = "🍋"
	Melon   = "🍉"
	Star    = "⭐"
	Diamond = "💎"
	Seven   = "7️⃣"
)

var symbols = [...]string{Cherry, Lemon, Melon, Star, Diamond, Seven}

var (
	multJackpot = decimal.NewFromInt(10)
	multDiamond = decimal.NewFromInt(5)
	multTriple  = decimal.NewFromInt(3)
	multPair    = decimal.RequireFromString("1.5")
)

type SlotsDetails struct {
	Reels [3]string `json:"reels"`
}

func playSlots(bet money.Amount, rng Rand) Outcome {
	var reels [3]string
	for i := range reels {
		reels[i] = symbols[rng.IntN(len(symbols))]
	}

	return SlotsOutcome(bet, reels)
}

// SlotsOutcome scores a fixed set of reels.
func SlotsOutcome(bet money.Amount, reels [3]string) Outcome {
	mult := SlotsMultiplier(reels)
	win := Payout(bet, mult)

	return Outcome{
		Variant:    Slots,
		Details:    SlotsDetails{Reels: reels},
		Multiplier: mult,
		WinAmount:  win,
		IsWin:      win > bet,
	}
}

// SlotsMultiplier pays triples by symbol and adjacent pairs (reels 0-1 or 1-2) at 1.5x.
func SlotsMultiplier(reels [3]string) decimal.Decimal {
	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		switch reels[0] {
		case Seven:
			return multJackpot
		case Diamond:
			return multDiamond
		default:
			return multTriple
		}
	case reels[0] == reels[1] || reels[1] == reels[2]:
		return multPair
	default:
		return decimal.Zero
	}
}

package games

import (
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/shopspring/decimal"
)

// RouletteWinChance is the probability of an even-money win. The drawn number does not decide
// the round.
const RouletteWinChance = 0.48

var multRoulette = decimal.NewFromInt(2)

var redNumbers = map[int]struct{}{
	1: {}, 3: {}, 5: {}, 7: {}, 9: {}, 12: {}, 14: {}, 16: {}, 18: {},
	19: {}, 21: {}, 23: {}, 25: {}, 27: {}, 30: {}, 32: {}, 34: {}, 36: {},
}

type RouletteDetails struct {
	Number int    `json:"number"`
	Color  string `json:"color"`
}

func playRoulette(bet money.Amount, rng Rand) Outcome {
	number := rng.IntN(37)
	isWin := rng.Float64() < RouletteWinChance

	mult := decimal.Zero
	if isWin {
		mult = multRoulette
	}

	return Outcome{
		Variant:    Roulette,
		Details:    RouletteDetails{Number: number, Color: RouletteColor(number)},
		Multiplier: mult,
		WinAmount:  Payout(bet, mult),
		IsWin:      isWin,
	}
}

func RouletteColor(n int) string {
	if n == 0 {
		return "green"
	}

	if _, ok := redNumbers[n]; ok {
		return "red"
	}

	return "black"
}

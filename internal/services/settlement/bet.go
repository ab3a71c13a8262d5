package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/casinobot/internal/games"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
)

// PlaceBet runs one round:
//
// 1) Validate limits and variant.
// 2) Debit the bet (guarded, fails with ledger.ErrInsufficientFunds).
// 3) Play.
// 4) Credit the win and record the round in one store call.
//
// Once the debit is applied the flow ignores caller cancellation. If step 4 fails the debit is
// refunded, so a bet is either fully settled or leaves the balance as it was.
func (e *Engine) PlaceBet(ctx context.Context, userID uint64, variant games.Variant, amount money.Amount) (BetResult, error) {
	// 1) Validate
	if !variant.Valid() {
		return BetResult{}, fmt.Errorf("place bet: %w: %q", games.ErrUnknownGame, variant)
	}

	if amount < e.limits.MinBet || amount > e.limits.MaxBet {
		return BetResult{}, invalidAmount("bet must be between %s and %s", e.limits.MinBet, e.limits.MaxBet)
	}

	// 2) Debit
	_, err := e.store.AdjustBalance(ctx, userID, -amount)
	if err != nil {
		return BetResult{}, fmt.Errorf("debit bet: %w", err)
	}

	ctx = context.WithoutCancel(ctx)
	roundID := e.newID()

	// 3) Play
	outcome, err := games.Play(variant, amount, e.rng)
	if err != nil {
		return BetResult{}, e.refund(ctx, "bet", userID, amount, roundID.String(), fmt.Errorf("play: %w", err))
	}

	details, err := json.Marshal(outcome.Details)
	if err != nil {
		return BetResult{}, e.refund(ctx, "bet", userID, amount, roundID.String(), fmt.Errorf("encode outcome: %w", err))
	}

	round := ledger.GameRound{
		ID:         roundID,
		UserID:     userID,
		Game:       string(variant),
		Bet:        amount,
		Win:        outcome.WinAmount,
		Multiplier: outcome.Multiplier,
		Outcome:    details,
	}

	// 4) Credit + record
	balance, err := e.store.SettleRound(ctx, round)
	if err != nil {
		return BetResult{}, e.refund(ctx, "bet", userID, amount, roundID.String(), fmt.Errorf("settle round: %w", err))
	}

	result := "loss"
	if outcome.IsWin {
		result = "win"
	}

	e.metrics.Bets.WithLabelValues(round.Game, result).Inc()
	e.metrics.BetVolume.WithLabelValues(round.Game).Add(amount.Decimal().InexactFloat64())
	e.metrics.PayoutTotal.WithLabelValues(round.Game).Add(outcome.WinAmount.Decimal().InexactFloat64())

	return BetResult{Round: round, Outcome: outcome, NewBalance: balance}, nil
}

// IsRejection reports whether err is a user-correctable rejection of a bet or payment request,
// as opposed to an infrastructure failure.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, games.ErrUnknownGame) ||
		errors.Is(err, ledger.ErrInsufficientFunds) ||
		errors.Is(err, ledger.ErrUserNotFound)
}

package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/notify"
)

// Withdraw pays out amount as a provider check:
//
// 1) Validate limits and the current balance.
// 2) Debit (guarded).
// 3) Create the check; on failure refund and return the *gateway.Error.
// 4) Record the completed withdrawal.
//
// A failure in step 4 happens after the funds left, so the check is returned together with the
// error.
func (e *Engine) Withdraw(ctx context.Context, userID uint64, amount money.Amount) (WithdrawResult, error) {
	// 1) Validate
	if amount < e.limits.MinWithdraw {
		return WithdrawResult{}, invalidAmount("minimum withdrawal is %s", e.limits.MinWithdraw)
	}

	balance, err := e.store.GetBalance(ctx, userID)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("withdraw: %w", err)
	}

	if amount > balance {
		return WithdrawResult{}, fmt.Errorf("withdraw %s of %s: %w", amount, balance, ledger.ErrInsufficientFunds)
	}

	// 2) Debit
	balance, err = e.store.AdjustBalance(ctx, userID, -amount)
	if err != nil {
		return WithdrawResult{}, fmt.Errorf("debit withdrawal: %w", err)
	}

	ctx = context.WithoutCancel(ctx)

	// 3) Check
	check, err := e.gateway.CreateCheck(ctx, gateway.CheckRequest{
		Asset:       e.asset,
		Amount:      amount,
		PinToUserID: userID,
	})
	if err != nil {
		e.metrics.Withdrawals.WithLabelValues("gateway_error").Inc()
		return WithdrawResult{}, e.refund(ctx, "withdraw", userID, amount, "", fmt.Errorf("create check: %w", err))
	}

	result := WithdrawResult{Check: check, Amount: amount, NewBalance: balance}

	// 4) Audit record
	_, err = e.store.RecordTransaction(ctx, ledger.Transaction{
		UserID:       userID,
		Type:         ledger.TxWithdraw,
		Amount:       amount,
		Status:       ledger.StatusCompleted,
		ReferenceID:  check.ID,
		ReferenceURL: check.URL,
	})
	if err != nil {
		e.metrics.Withdrawals.WithLabelValues("audit_error").Inc()
		slog.Error("withdrawal paid but not recorded",
			"user_id", userID, "amount", amount.String(), "check_id", check.ID, "error", err)

		return result, fmt.Errorf("record withdrawal %s: %w", check.ID, err)
	}

	e.metrics.Withdrawals.WithLabelValues("ok").Inc()

	e.notify(ctx, notify.Event{
		Kind:      notify.KindWithdrawal,
		UserID:    userID,
		Amount:    amount,
		Reference: check.ID,
	})

	return result, nil
}

package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/notify"
)

// InitiateDeposit creates a provider invoice and records it as a pending deposit. The balance
// is untouched until the invoice is confirmed.
func (e *Engine) InitiateDeposit(ctx context.Context, userID uint64, amount money.Amount) (DepositInvoice, error) {
	if amount < e.limits.MinDeposit {
		return DepositInvoice{}, invalidAmount("minimum deposit is %s", e.limits.MinDeposit)
	}

	// No invoice for an unknown user: the pending record could not reference it.
	_, err := e.store.GetBalance(ctx, userID)
	if err != nil {
		return DepositInvoice{}, fmt.Errorf("initiate deposit: %w", err)
	}

	inv, err := e.gateway.CreateInvoice(ctx, gateway.InvoiceRequest{
		Asset:       e.asset,
		Amount:      amount,
		Description: fmt.Sprintf("Deposit user_%d", userID),
		Payload:     strconv.FormatUint(userID, 10),
	})
	if err != nil {
		return DepositInvoice{}, fmt.Errorf("create invoice: %w", err)
	}

	_, err = e.store.RecordTransaction(context.WithoutCancel(ctx), ledger.Transaction{
		UserID:       userID,
		Type:         ledger.TxDeposit,
		Amount:       amount,
		Status:       ledger.StatusPending,
		ReferenceID:  inv.ID,
		ReferenceURL: inv.PayURL,
	})
	if err != nil {
		return DepositInvoice{}, fmt.Errorf("record deposit %s: %w", inv.ID, err)
	}

	return DepositInvoice{InvoiceID: inv.ID, PayURL: inv.PayURL, Amount: amount}, nil
}

// ConfirmUserDeposit is ConfirmDeposit restricted to deposits owned by userID. References of
// other users look like unknown ones.
func (e *Engine) ConfirmUserDeposit(ctx context.Context, userID uint64, referenceID string) (DepositResult, error) {
	rec, err := e.store.GetTransaction(ctx, referenceID)
	if err != nil {
		return DepositResult{}, fmt.Errorf("confirm deposit: %w", err)
	}

	if rec.UserID != userID {
		return DepositResult{}, fmt.Errorf("confirm deposit: %w", ledger.ErrTransactionNotFound)
	}

	return e.confirm(ctx, rec)
}

// ConfirmDeposit checks the invoice with the provider and credits a paid deposit at most once.
// It is safe to call any number of times, concurrently, from polls and webhooks alike.
func (e *Engine) ConfirmDeposit(ctx context.Context, referenceID string) (DepositResult, error) {
	rec, err := e.store.GetTransaction(ctx, referenceID)
	if err != nil {
		return DepositResult{}, fmt.Errorf("confirm deposit: %w", err)
	}

	return e.confirm(ctx, rec)
}

func (e *Engine) confirm(ctx context.Context, rec ledger.Transaction) (DepositResult, error) {
	if rec.Type != ledger.TxDeposit {
		return DepositResult{}, fmt.Errorf("confirm deposit: %w", ledger.ErrTransactionNotFound)
	}

	switch rec.Status {
	case ledger.StatusCompleted:
		return e.confirmed(DepositResult{Status: DepositCompleted, Amount: rec.Amount, AlreadySettled: true}), nil
	case ledger.StatusFailed:
		return e.confirmed(DepositResult{Status: DepositExpired, Amount: rec.Amount}), nil
	}

	status, err := e.gateway.GetInvoiceStatus(ctx, rec.ReferenceID)
	if err != nil {
		return DepositResult{}, fmt.Errorf("invoice status: %w", err)
	}

	ctx = context.WithoutCancel(ctx)

	switch status {
	case gateway.InvoiceActive:
		return e.confirmed(DepositResult{Status: DepositPending, Amount: rec.Amount}), nil

	case gateway.InvoiceExpired:
		_, err = e.store.MarkTransactionFailed(ctx, rec.ReferenceID)
		switch {
		case err == nil, errors.Is(err, ledger.ErrTransactionFailed):
			return e.confirmed(DepositResult{Status: DepositExpired, Amount: rec.Amount}), nil
		case errors.Is(err, ledger.ErrAlreadyCompleted):
			return e.confirmed(DepositResult{Status: DepositCompleted, Amount: rec.Amount, AlreadySettled: true}), nil
		default:
			return DepositResult{}, fmt.Errorf("expire deposit %s: %w", rec.ReferenceID, err)
		}

	case gateway.InvoicePaid:
		done, balance, err := e.store.CompleteDeposit(ctx, rec.ReferenceID)
		switch {
		case err == nil:
		case errors.Is(err, ledger.ErrAlreadyCompleted):
			return e.confirmed(DepositResult{Status: DepositCompleted, Amount: rec.Amount, AlreadySettled: true}), nil
		default:
			return DepositResult{}, fmt.Errorf("complete deposit %s: %w", rec.ReferenceID, err)
		}

		slog.Info("deposit credited", "user_id", done.UserID, "amount", done.Amount.String(), "ref", done.ReferenceID)

		e.notify(ctx, notify.Event{
			Kind:      notify.KindDeposit,
			UserID:    done.UserID,
			Amount:    done.Amount,
			Reference: done.ReferenceID,
		})

		return e.confirmed(DepositResult{Status: DepositCompleted, Amount: done.Amount, NewBalance: balance}), nil

	default:
		return DepositResult{}, &gateway.Error{Op: "getInvoices", Err: fmt.Errorf("unknown invoice status %q", status)}
	}
}

func (e *Engine) confirmed(res DepositResult) DepositResult {
	label := string(res.Status)
	if res.AlreadySettled {
		label = "settled"
	}

	e.metrics.DepositConfirmations.WithLabelValues(label).Inc()

	return res
}

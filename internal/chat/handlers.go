package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/services/settlement"
)

func (b *Bot) handleStart(ctx context.Context, req *request) error {
	err := b.sessions.Save(ctx, req.userID, Session{Step: StepIdle})
	if err != nil {
		return err
	}

	kb := b.mainMenu()

	return b.send(req.chatID, welcomeText(b.svc.Limits().MinWithdraw, b.svc.Asset()), &kb)
}

func (b *Bot) handleMenu(_ context.Context, req *request) error {
	kb := b.mainMenu()
	return b.reply(req, msgMainMenu, &kb)
}

func (b *Bot) handleProfile(ctx context.Context, req *request) error {
	p, err := b.svc.Profile(ctx, req.userID)
	if err != nil {
		return err
	}

	kb := profileMenu()

	return b.reply(req, profileText(p, b.svc.Asset()), &kb)
}

func (b *Bot) handleDeposit(ctx context.Context, req *request) error {
	if req.arg != "" {
		return b.deposit(ctx, req, req.arg)
	}

	err := b.sessions.Save(ctx, req.userID, AwaitAmount(AmountDeposit))
	if err != nil {
		return err
	}

	kb := cancelKeyboard()

	return b.reply(req, depositPromptText(b.svc.Limits().MinDeposit, b.svc.Asset()), &kb)
}

func (b *Bot) handleWithdraw(ctx context.Context, req *request) error {
	if req.arg != "" {
		return b.withdraw(ctx, req, req.arg)
	}

	p, err := b.svc.Profile(ctx, req.userID)
	if err != nil {
		return err
	}

	err = b.sessions.Save(ctx, req.userID, AwaitAmount(AmountWithdraw))
	if err != nil {
		return err
	}

	kb := cancelKeyboard()

	return b.reply(req, withdrawPromptText(p.Account.Balance, b.svc.Limits().MinWithdraw, b.svc.Asset()), &kb)
}

func (b *Bot) handleCancel(ctx context.Context, req *request) error {
	err := b.sessions.Save(ctx, req.userID, Session{Step: StepIdle})
	if err != nil {
		return err
	}

	kb := backKeyboard()

	return b.reply(req, msgCancelled, &kb)
}

// handleText consumes a captured amount. The session returns to idle whatever the outcome.
func (b *Bot) handleText(ctx context.Context, req *request, text string) error {
	s, err := b.sessions.Load(ctx, req.userID)
	if err != nil {
		return err
	}

	kind, ok := s.Awaiting()
	if !ok {
		return b.send(req.chatID, msgUseStart, nil)
	}

	err = b.sessions.Save(ctx, req.userID, Session{Step: StepIdle})
	if err != nil {
		return err
	}

	switch kind {
	case AmountDeposit:
		return b.deposit(ctx, req, text)
	case AmountWithdraw:
		return b.withdraw(ctx, req, text)
	default:
		return fmt.Errorf("unexpected amount kind %q", kind)
	}
}

func (b *Bot) deposit(ctx context.Context, req *request, raw string) error {
	kb := backKeyboard()

	amount, err := money.Parse(strings.TrimSpace(raw))
	if err != nil {
		return b.send(req.chatID, msgBadAmount, &kb)
	}

	inv, err := b.svc.InitiateDeposit(ctx, req.userID, amount)
	if err != nil {
		var gerr *gateway.Error

		switch {
		case errors.Is(err, settlement.ErrInvalidAmount):
			return b.send(req.chatID, minAmountText(b.svc.Limits().MinDeposit, b.svc.Asset()), &kb)
		case errors.As(err, &gerr):
			slog.Warn("create invoice failed", "user_id", req.userID, "error", err)
			return b.send(req.chatID, msgInvoiceFailed, &kb)
		default:
			return err
		}
	}

	ikb := invoiceKeyboard(inv)

	return b.send(req.chatID, invoiceText(inv, b.svc.Asset()), &ikb)
}

func (b *Bot) withdraw(ctx context.Context, req *request, raw string) error {
	kb := backKeyboard()

	amount, err := money.Parse(strings.TrimSpace(raw))
	if err != nil {
		return b.send(req.chatID, msgBadAmount, &kb)
	}

	res, err := b.svc.Withdraw(ctx, req.userID, amount)
	if err != nil {
		var gerr *gateway.Error

		switch {
		case res.Check.ID != "":
			// The check exists and the balance was debited; only bookkeeping failed.
			slog.Error("withdrawal audit failed", "user_id", req.userID, "check_id", res.Check.ID, "error", err)
		case errors.Is(err, settlement.ErrInvalidAmount):
			return b.send(req.chatID, minAmountText(b.svc.Limits().MinWithdraw, b.svc.Asset()), &kb)
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return b.send(req.chatID, msgInsufficientFunds, &kb)
		case errors.As(err, &gerr):
			slog.Warn("create check failed", "user_id", req.userID, "error", err)
			return b.send(req.chatID, msgCheckFailed, &kb)
		default:
			return err
		}
	}

	return b.send(req.chatID, withdrawDoneText(res, b.svc.Asset()), &kb)
}

func (b *Bot) handleCheckDeposit(ctx context.Context, req *request) error {
	res, err := b.svc.ConfirmUserDeposit(ctx, req.userID, req.arg)
	if err != nil {
		var gerr *gateway.Error

		switch {
		case errors.Is(err, ledger.ErrTransactionNotFound):
			b.answer(req, msgInvoiceUnknown, true)
			return nil
		case errors.As(err, &gerr):
			slog.Warn("invoice status failed", "user_id", req.userID, "invoice_id", req.arg, "error", err)
			b.answer(req, msgCheckError, true)
			return nil
		default:
			return err
		}
	}

	kb := backKeyboard()

	switch res.Status {
	case settlement.DepositPending:
		b.answer(req, msgAwaitingPayment, true)
		return nil
	case settlement.DepositExpired:
		return b.reply(req, msgInvoiceExpired, &kb)
	default:
		return b.reply(req, depositDoneText(res.Amount, b.svc.Asset()), &kb)
	}
}

// handleStats answers admins only. Everyone else gets no reply.
func (b *Bot) handleStats(ctx context.Context, req *request) error {
	if !b.isAdmin(req.userID) {
		return nil
	}

	stats, err := b.svc.AdminStats(ctx, AdminStatsWindow)
	if err != nil {
		return err
	}

	return b.send(req.chatID, adminStatsText(stats, b.svc.Asset()), nil)
}

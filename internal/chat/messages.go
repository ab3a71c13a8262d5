package chat

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/services/settlement"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
)

const (
	msgMainMenu          = "Main menu"
	msgCancelled         = "Cancelled."
	msgUseStart          = "Use /start to open the menu."
	msgUnknownCommand    = "Unknown command. Use /start to open the menu."
	msgBadAmount         = "⚠️ Enter a valid amount, e.g. 10 or 2.50"
	msgInsufficientFunds = "⚠️ Insufficient funds"
	msgInvoiceFailed     = "❌ Could not create an invoice. Try again later."
	msgCheckFailed       = "❌ Could not create a check. Try again later."
	msgInvoiceUnknown    = "❌ Invoice not found"
	msgCheckError        = "❌ Payment check failed, try again"
	msgAwaitingPayment   = "⏳ Waiting for payment..."
	msgInvoiceExpired    = "⌛ The invoice expired. Create a new deposit."
	msgTryLater          = "❌ Something went wrong. Try again later."
)

func welcomeText(minWithdraw money.Amount, asset string) string {
	return "🎰 <b>Welcome to the casino!</b>\n\n" +
		"🚀 Fast payouts as checks\n" +
		"💎 Instant deposits\n" +
		fmt.Sprintf("🎁 Minimum withdrawal: %s %s\n\n", minWithdraw, asset) +
		"<i>Press Play to open the mini app</i>"
}

func profileText(p settlement.Profile, asset string) string {
	rtp := p.Stats.AvgRTP.Mul(decimal.NewFromInt(100)).StringFixed(2)

	var sb strings.Builder

	sb.WriteString("👤 <b>Your profile</b>\n\n")
	fmt.Fprintf(&sb, "💰 Balance: <code>%s %s</code>\n", p.Account.Balance, asset)
	fmt.Fprintf(&sb, "📅 Registered: %s\n\n", p.Account.CreatedAt.Format("02.01.2006"))
	fmt.Fprintf(&sb, "🎮 Games played: %d\n", p.Stats.Games)
	fmt.Fprintf(&sb, "💸 Total bet: %s %s\n", p.Stats.TotalBet, asset)
	fmt.Fprintf(&sb, "📈 RTP: %s%%", rtp)

	return sb.String()
}

func depositPromptText(minDeposit money.Amount, asset string) string {
	return "💳 <b>Deposit</b>\n\n" +
		fmt.Sprintf("Minimum amount: <code>%s %s</code>\n", minDeposit, asset) +
		"Enter the amount to deposit:"
}

func withdrawPromptText(balance, minWithdraw money.Amount, asset string) string {
	return "📤 <b>Withdrawal</b>\n\n" +
		fmt.Sprintf("Available: <code>%s %s</code>\n", balance, asset) +
		fmt.Sprintf("Minimum amount: <code>%s %s</code>\n\n", minWithdraw, asset) +
		"⚠️ <i>Paid out as a Crypto Pay check</i>\n\n" +
		"Enter the amount to withdraw:"
}

func minAmountText(minimum money.Amount, asset string) string {
	return fmt.Sprintf("⚠️ Minimum amount: %s %s", minimum, asset)
}

func invoiceText(inv settlement.DepositInvoice, asset string) string {
	return "📨 <b>Invoice created</b>\n" +
		fmt.Sprintf("Amount: <code>%s %s</code>\n\n", inv.Amount, asset) +
		fmt.Sprintf("ID: <code>%s</code>", html.EscapeString(inv.InvoiceID))
}

func depositDoneText(amount money.Amount, asset string) string {
	return "✅ <b>Deposit received!</b>\n\n" +
		fmt.Sprintf("Credited <code>%s %s</code>", amount, asset)
}

func withdrawDoneText(res settlement.WithdrawResult, asset string) string {
	return "✅ <b>Withdrawal done!</b>\n\n" +
		fmt.Sprintf("Amount: <code>%s %s</code>\n", res.Amount, asset) +
		fmt.Sprintf("Check: %s\n\n", html.EscapeString(res.Check.URL)) +
		"⚠️ <i>Activate the check within 24 hours</i>\n\n" +
		fmt.Sprintf("Check ID: <code>%s</code>", html.EscapeString(res.Check.ID))
}

func adminStatsText(s ledger.AdminStats, asset string) string {
	return "📊 <b>Last 24 hours</b>\n\n" +
		fmt.Sprintf("👥 Users: %d\n", s.Users) +
		fmt.Sprintf("💰 Deposits: %s %s\n", s.Deposits, asset) +
		fmt.Sprintf("📤 Withdrawals: %s %s\n", s.Withdrawals, asset) +
		fmt.Sprintf("🔄 Transactions: %d", s.Transactions)
}

// --- Keyboards ---

func (b *Bot) mainMenu() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)

	if b.opts.WebAppURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🎰 Play", b.opts.WebAppURL),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💼 Profile", CmdProfile.String()),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func profileMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 Deposit", CmdDeposit.String()),
			tgbotapi.NewInlineKeyboardButtonData("📤 Withdraw", CmdWithdraw.String()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Main menu", CmdMenu.String()),
		),
	)
}

func invoiceKeyboard(inv settlement.DepositInvoice) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Pay", inv.PayURL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Check", checkDepositData(inv.InvoiceID)),
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CmdProfile.String()),
		),
	)
}

func backKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", CmdProfile.String()),
		),
	)
}

func cancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", CmdCancel.String()),
		),
	)
}

// --- Transport ---

func (b *Bot) send(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if kb != nil {
		msg.ReplyMarkup = *kb
	}

	_, err := b.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// reply edits the message carrying the pressed button, or sends a new message for typed
// commands.
func (b *Bot) reply(req *request, text string, kb *tgbotapi.InlineKeyboardMarkup) error {
	if !req.isCallback() {
		return b.send(req.chatID, text, kb)
	}

	var edit tgbotapi.EditMessageTextConfig
	if kb != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(req.chatID, req.messageID, text, *kb)
	} else {
		edit = tgbotapi.NewEditMessageText(req.chatID, req.messageID, text)
	}

	edit.ParseMode = tgbotapi.ModeHTML

	_, err := b.api.Send(edit)
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}

	return nil
}

// answer acknowledges a button press, optionally with a popup. For typed commands the text is
// sent as a plain message instead.
func (b *Bot) answer(req *request, text string, alert bool) {
	if !req.isCallback() {
		if text != "" {
			_ = b.send(req.chatID, text, nil)
		}

		return
	}

	req.answered = true

	cb := tgbotapi.NewCallback(req.callbackID, text)
	cb.ShowAlert = alert

	_, err := b.api.Request(cb)
	if err != nil {
		slog.Warn("answer callback failed", "user_id", req.userID, "error", err)
	}
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/fastprodman/casinobot/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminNotifier messages every admin about deposits and withdrawals.
type AdminNotifier struct {
	api    Sender
	admins []int64
}

var _ notify.Notifier = (*AdminNotifier)(nil)

func NewAdminNotifier(api Sender, admins []int64) *AdminNotifier {
	return &AdminNotifier{api: api, admins: admins}
}

// Notify tries every admin and reports the joined delivery errors.
func (n *AdminNotifier) Notify(ctx context.Context, ev notify.Event) error {
	text := eventText(ev)

	var errs []error

	for _, id := range n.admins {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeHTML

		_, err := n.api.Send(msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("notify admin %d: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

func eventText(ev notify.Event) string {
	var title, refLabel string

	switch ev.Kind {
	case notify.KindDeposit:
		title, refLabel = "💰 <b>New deposit</b>", "Invoice"
	case notify.KindWithdrawal:
		title, refLabel = "📤 <b>New withdrawal</b>", "Check ID"
	default:
		title, refLabel = "ℹ️ <b>"+html.EscapeString(string(ev.Kind))+"</b>", "Reference"
	}

	return fmt.Sprintf("%s\n\nUser: <code>%d</code>\nAmount: <code>%s %s</code>\n%s: <code>%s</code>",
		title, ev.UserID, ev.Amount, html.EscapeString(ev.Asset), refLabel, html.EscapeString(ev.Reference))
}

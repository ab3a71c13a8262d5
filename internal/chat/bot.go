// Package chat is the Telegram bot front end: a command table, the amount capture flow and the
// admin notifier.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/fastprodman/casinobot/internal/config"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/services/settlement"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// Sender is the subset of *tgbotapi.BotAPI the bot talks through.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the part of the settlement engine the chat drives.
type Service interface {
	EnsureAccount(ctx context.Context, userID uint64, username string) (ledger.Account, error)
	Profile(ctx context.Context, userID uint64) (settlement.Profile, error)
	InitiateDeposit(ctx context.Context, userID uint64, amount money.Amount) (settlement.DepositInvoice, error)
	ConfirmUserDeposit(ctx context.Context, userID uint64, referenceID string) (settlement.DepositResult, error)
	Withdraw(ctx context.Context, userID uint64, amount money.Amount) (settlement.WithdrawResult, error)
	AdminStats(ctx context.Context, window time.Duration) (ledger.AdminStats, error)
	Limits() config.LimitsConfig
	Asset() string
}

// AdminStatsWindow is the trailing window of /stats.
const AdminStatsWindow = 24 * time.Hour

const (
	defaultLanes = 8
	laneBuffer   = 16
)

type Options struct {
	AdminIDs  config.IDList
	WebAppURL string
	// Lanes is the number of concurrent update handlers. Updates of one user always share a
	// lane, so they are handled in arrival order.
	Lanes int
}

type Bot struct {
	api      Sender
	svc      Service
	sessions SessionStore
	opts     Options
	handlers map[Command]handlerFunc
}

// request is one incoming action, from a message or a button press.
type request struct {
	userID   uint64
	username string
	chatID   int64
	arg      string

	// Set for button presses only.
	callbackID string
	messageID  int
	answered   bool
}

func (r *request) isCallback() bool { return r.callbackID != "" }

type handlerFunc func(ctx context.Context, req *request) error

func NewBot(api Sender, svc Service, sessions SessionStore, opts Options) *Bot {
	if opts.Lanes <= 0 {
		opts.Lanes = defaultLanes
	}

	b := &Bot{api: api, svc: svc, sessions: sessions, opts: opts}

	b.handlers = map[Command]handlerFunc{
		CmdStart:        b.handleStart,
		CmdMenu:         b.handleMenu,
		CmdProfile:      b.handleProfile,
		CmdDeposit:      b.handleDeposit,
		CmdWithdraw:     b.handleWithdraw,
		CmdStats:        b.handleStats,
		CmdCancel:       b.handleCancel,
		CmdCheckDeposit: b.handleCheckDeposit,
	}

	return b
}

// Run handles updates until ctx is done or updates is closed, then waits for in-flight
// handlers.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var g errgroup.Group

	lanes := make([]chan tgbotapi.Update, b.opts.Lanes)
	for i := range lanes {
		lane := make(chan tgbotapi.Update, laneBuffer)
		lanes[i] = lane

		g.Go(func() error {
			for upd := range lane {
				b.HandleUpdate(ctx, upd)
			}

			return nil
		})
	}

	b.dispatch(ctx, updates, lanes)

	for _, lane := range lanes {
		close(lane)
	}

	return g.Wait()
}

func (b *Bot) dispatch(ctx context.Context, updates <-chan tgbotapi.Update, lanes []chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}

			id, ok := senderID(upd)
			if !ok {
				continue
			}

			select {
			case lanes[id%uint64(len(lanes))] <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

// HandleUpdate routes a single update. Failures are logged and reported to the user.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	req, cmd, text, ok := parseUpdate(upd)
	if !ok {
		return
	}

	_, err := b.svc.EnsureAccount(ctx, req.userID, req.username)
	if err != nil {
		b.fail(req, "ensure account", err)
		return
	}

	switch {
	case cmd != CmdUnknown:
		err = b.handlers[cmd](ctx, req)
	case req.isCallback():
		// Stale or foreign button.
	case text != "":
		err = b.handleText(ctx, req, text)
	default:
		err = b.send(req.chatID, msgUnknownCommand, nil)
	}

	if err != nil {
		b.fail(req, cmd.String(), err)
		return
	}

	if req.isCallback() && !req.answered {
		b.answer(req, "", false)
	}
}

func senderID(upd tgbotapi.Update) (uint64, bool) {
	var from *tgbotapi.User

	switch {
	case upd.CallbackQuery != nil:
		from = upd.CallbackQuery.From
	case upd.Message != nil:
		from = upd.Message.From
	}

	if from == nil || from.ID <= 0 {
		return 0, false
	}

	return uint64(from.ID), true
}

func parseUpdate(upd tgbotapi.Update) (*request, Command, string, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if cq.From == nil || cq.From.ID <= 0 || cq.Message == nil || cq.Message.Chat == nil {
			return nil, CmdUnknown, "", false
		}

		cmd, arg := ParseCallback(cq.Data)

		return &request{
			userID:     uint64(cq.From.ID),
			username:   cq.From.UserName,
			chatID:     cq.Message.Chat.ID,
			arg:        arg,
			callbackID: cq.ID,
			messageID:  cq.Message.MessageID,
		}, cmd, "", true

	case upd.Message != nil:
		msg := upd.Message
		if msg.From == nil || msg.From.ID <= 0 || msg.Chat == nil {
			return nil, CmdUnknown, "", false
		}

		req := &request{
			userID:   uint64(msg.From.ID),
			username: msg.From.UserName,
			chatID:   msg.Chat.ID,
		}

		if msg.IsCommand() {
			req.arg = msg.CommandArguments()
			cmd := ParseSlash(msg.Command())
			if cmd == CmdUnknown {
				// Unknown slash commands never count as an amount.
				return req, CmdUnknown, "", true
			}

			return req, cmd, "", true
		}

		return req, CmdUnknown, msg.Text, true
	}

	return nil, CmdUnknown, "", false
}

func (b *Bot) fail(req *request, op string, err error) {
	slog.Error("chat handler failed", "op", op, "user_id", req.userID, "error", err)

	if req.isCallback() && !req.answered {
		b.answer(req, msgTryLater, true)
		return
	}

	_ = b.send(req.chatID, msgTryLater, nil)
}

func (b *Bot) isAdmin(userID uint64) bool {
	return b.opts.AdminIDs.Contains(int64(userID))
}

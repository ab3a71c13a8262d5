package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fastprodman/casinobot/internal/config"
	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger/memledger"
	"github.com/fastprodman/casinobot/internal/services/settlement"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var testLimits = config.LimitsConfig{MinDeposit: 100, MinWithdraw: 100, MinBet: 10, MaxBet: 10_000}

// fakeSender records outgoing calls.
type fakeSender struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
	failChat  map[int64]bool
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := c.(tgbotapi.MessageConfig); ok && f.failChat[m.ChatID] {
		return tgbotapi.Message{}, errors.New("forbidden: bot was blocked by the user")
	}

	f.sent = append(f.sent, c)

	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}

	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every sent or edited message.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.sent))

	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		}
	}

	return out
}

func (f *fakeSender) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.sent) == 0 {
		return nil
	}

	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastText() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}

	return t[len(t)-1]
}

func (f *fakeSender) lastCallback() tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.callbacks) == 0 {
		return tgbotapi.CallbackConfig{}
	}

	return f.callbacks[len(f.callbacks)-1]
}

type stubGateway struct {
	mu       sync.Mutex
	n        int
	statuses map[string]gateway.InvoiceStatus
	checkErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{statuses: make(map[string]gateway.InvoiceStatus)}
}

func (g *stubGateway) CreateInvoice(_ context.Context, req gateway.InvoiceRequest) (gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.n++
	id := fmt.Sprintf("inv_%d", g.n)
	g.statuses[id] = gateway.InvoiceActive

	return gateway.Invoice{ID: id, PayURL: "https://pay.test/" + id, Amount: req.Amount}, nil
}

func (g *stubGateway) GetInvoiceStatus(_ context.Context, id string) (gateway.InvoiceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.statuses[id]
	if !ok {
		return "", &gateway.Error{Op: "getInvoices", Name: "INVOICE_NOT_FOUND"}
	}

	return st, nil
}

func (g *stubGateway) CreateCheck(context.Context, gateway.CheckRequest) (gateway.Check, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkErr != nil {
		return gateway.Check{}, g.checkErr
	}

	g.n++
	id := fmt.Sprintf("chk_%d", g.n)

	return gateway.Check{ID: id, URL: "https://t.me/CryptoBot?start=" + id}, nil
}

func (g *stubGateway) setStatus(id string, st gateway.InvoiceStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statuses[id] = st
}

type harness struct {
	bot      *Bot
	api      *fakeSender
	gw       *stubGateway
	store    *memledger.Store
	sessions *MemorySessions
}

const (
	userID  = 1001
	adminID = 7
)

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		api:      &fakeSender{},
		gw:       newStubGateway(),
		store:    memledger.New(),
		sessions: NewMemorySessions(0),
	}

	engine := settlement.New(h.store, h.gw, nil, testLimits)
	h.bot = NewBot(h.api, engine, h.sessions, Options{
		AdminIDs:  config.IDList{adminID},
		WebAppURL: "https://casino.test/app",
		Lanes:     2,
	})

	return h
}

func command(from int64, text string) tgbotapi.Update {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}

	return tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from, UserName: "neo"},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}}
}

func typed(from int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from, UserName: "neo"},
		Chat: &tgbotapi.Chat{ID: from},
		Text: s,
	}}
}

func press(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb-" + data,
		From: &tgbotapi.User{ID: from, UserName: "neo"},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 55,
			Chat:      &tgbotapi.Chat{ID: from},
		},
	}}
}

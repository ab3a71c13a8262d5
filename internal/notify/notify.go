// Package notify delivers best-effort operator notifications about money movements.
package notify

import (
	"context"

	"github.com/fastprodman/casinobot/internal/money"
)

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
)

type Event struct {
	Kind      Kind
	UserID    uint64
	Amount    money.Amount
	Asset     string
	Reference string // invoice or check id
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, ev Event) error

func (f Func) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

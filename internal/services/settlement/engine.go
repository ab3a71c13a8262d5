// Package settlement turns user requests into ledger mutations and payment gateway calls.
//
// The engine holds no mutable state of its own. Every cross-request guarantee comes from the
// atomic operations of ledger.Store, so any number of engines may serve the same users.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fastprodman/casinobot/internal/config"
	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/games"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/metrics"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/notify"
	"github.com/google/uuid"
)

// WebAppStatsWindow is the trailing window shown by the web app.
const WebAppStatsWindow = 7 * 24 * time.Hour

type Engine struct {
	store    ledger.Store
	gateway  gateway.Gateway
	notifier notify.Notifier
	limits   config.LimitsConfig

	asset   string
	rng     games.Rand
	newID   func() uuid.UUID
	metrics *metrics.Metrics
}

type Option func(*Engine)

// WithRand replaces the process-wide generator. r is serialized internally, so a plain
// *rand.Rand is fine.
func WithRand(r games.Rand) Option {
	return func(e *Engine) { e.rng = &lockedRand{r: r} }
}

func WithAsset(asset string) Option {
	return func(e *Engine) { e.asset = asset }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRoundIDs overrides uuid.New for round ids.
func WithRoundIDs(fn func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = fn }
}

func New(store ledger.Store, gw gateway.Gateway, notifier notify.Notifier, limits config.LimitsConfig, opts ...Option) *Engine {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	e := &Engine{
		store:    store,
		gateway:  gw,
		notifier: notifier,
		limits:   limits,
		asset:    "USDT",
		rng:      globalRand{},
		newID:    uuid.New,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = metrics.NewUnregistered()
	}

	return e
}

func (e *Engine) Limits() config.LimitsConfig { return e.limits }

func (e *Engine) Asset() string { return e.asset }

// refund credits back a debit whose flow could not finish. cause is returned unchanged when the
// refund succeeds.
func (e *Engine) refund(ctx context.Context, flow string, userID uint64, amount money.Amount, ref string, cause error) error {
	_, err := e.store.AdjustBalance(ctx, userID, amount)
	if err != nil {
		e.metrics.Refunds.WithLabelValues(flow, "failed").Inc()
		slog.Error("refund failed: debit needs manual reconciliation",
			"flow", flow, "user_id", userID, "amount", amount.String(), "ref", ref,
			"cause", cause, "error", err)

		return errors.Join(cause, fmt.Errorf("refund %s %s: %w", flow, ref, err))
	}

	e.metrics.Refunds.WithLabelValues(flow, "ok").Inc()
	slog.Warn("debit refunded", "flow", flow, "user_id", userID, "amount", amount.String(), "ref", ref, "cause", cause)

	return cause
}

func (e *Engine) notify(ctx context.Context, ev notify.Event) {
	ev.Asset = e.asset

	err := e.notifier.Notify(ctx, ev)
	if err != nil {
		slog.Warn("admin notification not sent", "kind", ev.Kind, "user_id", ev.UserID, "error", err)
	}
}

func invalidAmount(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAmount, fmt.Sprintf(format, args...))
}

type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

type lockedRand struct {
	mu sync.Mutex
	r  games.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.r.IntN(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.r.Float64()
}

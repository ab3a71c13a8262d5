package settlement

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastprodman/casinobot/internal/config"
	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/ledger/memledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/notify"
)

var testLimits = config.LimitsConfig{
	MinDeposit:  100,
	MinWithdraw: 100,
	MinBet:      10,
	MaxBet:      10_000,
}

// faultyStore injects failures into a memledger.Store.
type faultyStore struct {
	*memledger.Store

	mu         sync.Mutex
	settleErr  error
	recordErr  error
	refundErr  error
	afterDebit func()
}

func (s *faultyStore) AdjustBalance(ctx context.Context, userID uint64, delta money.Amount) (money.Amount, error) {
	s.mu.Lock()
	refundErr, hook := s.refundErr, s.afterDebit
	s.mu.Unlock()

	if delta > 0 && refundErr != nil {
		return 0, refundErr
	}

	bal, err := s.Store.AdjustBalance(ctx, userID, delta)
	if err == nil && delta < 0 && hook != nil {
		hook()
	}

	return bal, err
}

func (s *faultyStore) SettleRound(ctx context.Context, round ledger.GameRound) (money.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	err := s.settleErr
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	return s.Store.SettleRound(ctx, round)
}

func (s *faultyStore) RecordTransaction(ctx context.Context, rec ledger.Transaction) (int64, error) {
	s.mu.Lock()
	err := s.recordErr
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	return s.Store.RecordTransaction(ctx, rec)
}

type fakeGateway struct {
	mu sync.Mutex

	nextID   int
	statuses map[string]gateway.InvoiceStatus
	checks   []gateway.CheckRequest

	invoiceErr error
	statusErr  error
	checkErr   error

	statusCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]gateway.InvoiceStatus)}
}

func (g *fakeGateway) CreateInvoice(_ context.Context, req gateway.InvoiceRequest) (gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.invoiceErr != nil {
		return gateway.Invoice{}, g.invoiceErr
	}

	g.nextID++
	id := fmt.Sprintf("inv_%d", g.nextID)
	g.statuses[id] = gateway.InvoiceActive

	return gateway.Invoice{ID: id, PayURL: "https://pay.test/" + id, Status: gateway.InvoiceActive, Asset: req.Asset, Amount: req.Amount}, nil
}

func (g *fakeGateway) GetInvoiceStatus(_ context.Context, invoiceID string) (gateway.InvoiceStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statusCalls++

	if g.statusErr != nil {
		return "", g.statusErr
	}

	return g.statuses[invoiceID], nil
}

func (g *fakeGateway) CreateCheck(_ context.Context, req gateway.CheckRequest) (gateway.Check, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.checkErr != nil {
		return gateway.Check{}, g.checkErr
	}

	g.checks = append(g.checks, req)
	id := fmt.Sprintf("chk_%d", len(g.checks))

	return gateway.Check{ID: id, URL: "https://t.me/check/" + id}, nil
}

func (g *fakeGateway) setStatus(id string, st gateway.InvoiceStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.statuses[id] = st
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.events = append(n.events, ev)

	return nil
}

func (n *recordingNotifier) all() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]notify.Event(nil), n.events...)
}

// scriptedRand replays fixed draws.
type scriptedRand struct {
	ints   []int
	floats []float64
}

func (s *scriptedRand) IntN(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]

	return v % n
}

func (s *scriptedRand) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]

	return v
}

// Package memledger is an in-process ledger.Store guarded by a single mutex. It gives the same
// atomicity guarantees as the Postgres store and backs tests and local runs without a database.
package memledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	accounts map[uint64]*ledger.Account
	txs      []*ledger.Transaction
	byRef    map[string]*ledger.Transaction
	rounds   []ledger.GameRound
	roundIDs map[uuid.UUID]struct{}
	nextTxID int64

	now func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for record timestamps and stats windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		accounts: make(map[uint64]*ledger.Account),
		byRef:    make(map[string]*ledger.Transaction),
		roundIDs: make(map[uuid.UUID]struct{}),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Store) UpsertUserIfAbsent(_ context.Context, userID uint64, username string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	acc, ok := s.accounts[userID]
	if !ok {
		acc = &ledger.Account{UserID: userID, Username: username, CreatedAt: now}
		s.accounts[userID] = acc
	}

	if username != "" {
		acc.Username = username
	}
	acc.LastActiveAt = now

	return *acc, nil
}

func (s *Store) GetAccount(_ context.Context, userID uint64) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return ledger.Account{}, ledger.ErrUserNotFound
	}

	return *acc, nil
}

func (s *Store) GetBalance(ctx context.Context, userID uint64) (money.Amount, error) {
	acc, err := s.GetAccount(ctx, userID)
	return acc.Balance, err
}

func (s *Store) AdjustBalance(_ context.Context, userID uint64, delta money.Amount) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.adjustLocked(userID, delta)
}

func (s *Store) adjustLocked(userID uint64, delta money.Amount) (money.Amount, error) {
	acc, ok := s.accounts[userID]
	if !ok {
		return 0, ledger.ErrUserNotFound
	}

	if acc.Balance+delta < 0 {
		return 0, ledger.ErrInsufficientFunds
	}

	acc.Balance += delta
	acc.LastActiveAt = s.now()

	return acc.Balance, nil
}

func (s *Store) RecordTransaction(_ context.Context, rec ledger.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[rec.UserID]; !ok {
		return 0, ledger.ErrUserNotFound
	}

	if rec.ReferenceID != "" {
		if _, dup := s.byRef[rec.ReferenceID]; dup {
			return 0, ledger.ErrDuplicateReference
		}
	}

	s.nextTxID++

	now := s.now()
	rec.ID = s.nextTxID
	rec.CreatedAt = now
	rec.UpdatedAt = now

	stored := &rec
	s.txs = append(s.txs, stored)
	if rec.ReferenceID != "" {
		s.byRef[rec.ReferenceID] = stored
	}

	return rec.ID, nil
}

func (s *Store) GetTransaction(_ context.Context, referenceID string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byRef[referenceID]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}

	return *rec, nil
}

func (s *Store) MarkTransactionCompleted(_ context.Context, referenceID string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transitionLocked(referenceID, ledger.StatusCompleted)
}

func (s *Store) MarkTransactionFailed(_ context.Context, referenceID string) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transitionLocked(referenceID, ledger.StatusFailed)
}

func (s *Store) transitionLocked(referenceID string, to ledger.TxStatus) (ledger.Transaction, error) {
	rec, ok := s.byRef[referenceID]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}

	switch rec.Status {
	case ledger.StatusCompleted:
		return *rec, ledger.ErrAlreadyCompleted
	case ledger.StatusFailed:
		return *rec, ledger.ErrTransactionFailed
	}

	rec.Status = to
	rec.UpdatedAt = s.now()

	return *rec, nil
}

func (s *Store) CompleteDeposit(_ context.Context, referenceID string) (ledger.Transaction, money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byRef[referenceID]
	if ok && rec.Status == ledger.StatusPending && rec.Type != ledger.TxDeposit {
		return *rec, 0, fmt.Errorf("complete deposit %s: record is a %s", referenceID, rec.Type)
	}

	done, err := s.transitionLocked(referenceID, ledger.StatusCompleted)
	if err != nil {
		return done, 0, err
	}

	balance, err := s.adjustLocked(done.UserID, done.Amount)
	if err != nil {
		rec.Status = ledger.StatusPending
		return done, 0, fmt.Errorf("credit deposit: %w", err)
	}

	return done, balance, nil
}

func (s *Store) RecordGameRound(_ context.Context, round ledger.GameRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.insertRoundLocked(round)
}

func (s *Store) insertRoundLocked(round ledger.GameRound) error {
	if _, ok := s.accounts[round.UserID]; !ok {
		return ledger.ErrUserNotFound
	}

	if _, dup := s.roundIDs[round.ID]; dup {
		return fmt.Errorf("insert game round: duplicate id %s", round.ID)
	}

	if round.CreatedAt.IsZero() {
		round.CreatedAt = s.now()
	}

	s.roundIDs[round.ID] = struct{}{}
	s.rounds = append(s.rounds, round)

	return nil
}

func (s *Store) SettleRound(_ context.Context, round ledger.GameRound) (money.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[round.UserID]
	if !ok {
		return 0, ledger.ErrUserNotFound
	}

	// Insert first so a rejected round leaves the balance untouched.
	err := s.insertRoundLocked(round)
	if err != nil {
		return 0, err
	}

	acc.Balance += round.Win
	acc.LastActiveAt = s.now()

	return acc.Balance, nil
}

func (s *Store) QueryRecentStats(_ context.Context, userID uint64, window time.Duration) (ledger.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.since(window)

	var (
		stats  ledger.Stats
		rtpSum = decimal.Zero
	)

	for _, r := range s.rounds {
		if r.UserID != userID || !r.CreatedAt.After(since) {
			continue
		}

		stats.Games++
		stats.TotalBet += r.Bet
		stats.TotalWin += r.Win

		if r.Bet > 0 {
			rtpSum = rtpSum.Add(r.Win.Decimal().Div(r.Bet.Decimal()))
		}
	}

	stats.AvgRTP = decimal.Zero
	if stats.Games > 0 {
		stats.AvgRTP = rtpSum.Div(decimal.NewFromInt(stats.Games))
	}

	return stats, nil
}

func (s *Store) QueryAdminStats(_ context.Context, window time.Duration) (ledger.AdminStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := s.since(window)
	users := make(map[uint64]struct{})

	var stats ledger.AdminStats

	for _, rec := range s.txs {
		if rec.CreatedAt.Before(since) {
			continue
		}

		users[rec.UserID] = struct{}{}
		stats.Transactions++

		if rec.Status != ledger.StatusCompleted {
			continue
		}

		switch rec.Type {
		case ledger.TxDeposit:
			stats.Deposits += rec.Amount
		case ledger.TxWithdraw:
			stats.Withdrawals += rec.Amount
		}
	}

	stats.Users = int64(len(users))

	return stats, nil
}

// since returns the lower bound for window; the zero time covers everything.
func (s *Store) since(window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}

	return s.now().Add(-window)
}

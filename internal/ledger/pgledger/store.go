// Package pgledger is the Postgres-backed ledger.Store.
package pgledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/repos/rounds"
	roundspg "github.com/fastprodman/casinobot/internal/repos/rounds/postgres"
	"github.com/fastprodman/casinobot/internal/repos/transactions"
	transactionspg "github.com/fastprodman/casinobot/internal/repos/transactions/postgres"
	"github.com/fastprodman/casinobot/internal/repos/users"
	userspg "github.com/fastprodman/casinobot/internal/repos/users/postgres"
)

var _ ledger.Store = (*Store)(nil)

type Store struct {
	db     *sql.DB
	users  users.Users
	txs    transactions.Transactions
	rounds rounds.Rounds
	now    func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{
		db:     db,
		users:  userspg.New(),
		txs:    transactionspg.New(),
		rounds: roundspg.New(),
		now:    time.Now,
	}
}

// storeErr leaves domain outcomes untouched and tags everything else as ledger.ErrStore.
func storeErr(err error) error {
	if err == nil || ledger.IsDomainError(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ledger.ErrStore, err)
}

func (s *Store) UpsertUserIfAbsent(ctx context.Context, userID uint64, username string) (ledger.Account, error) {
	acc, err := s.users.Upsert(ctx, s.db, userID, username)
	return acc, storeErr(err)
}

func (s *Store) GetAccount(ctx context.Context, userID uint64) (ledger.Account, error) {
	acc, err := s.users.Get(ctx, s.db, userID)
	return acc, storeErr(err)
}

func (s *Store) GetBalance(ctx context.Context, userID uint64) (money.Amount, error) {
	bal, err := s.users.GetBalance(ctx, s.db, userID)
	return bal, storeErr(err)
}

func (s *Store) AdjustBalance(ctx context.Context, userID uint64, delta money.Amount) (money.Amount, error) {
	bal, err := s.users.AdjustBalance(ctx, s.db, userID, delta)
	return bal, storeErr(err)
}

func (s *Store) RecordTransaction(ctx context.Context, rec ledger.Transaction) (int64, error) {
	id, err := s.txs.Insert(ctx, s.db, rec)
	return id, storeErr(err)
}

func (s *Store) GetTransaction(ctx context.Context, referenceID string) (ledger.Transaction, error) {
	rec, err := s.txs.GetByReference(ctx, s.db, referenceID)
	return rec, storeErr(err)
}

func (s *Store) MarkTransactionCompleted(ctx context.Context, referenceID string) (ledger.Transaction, error) {
	rec, err := s.txs.MarkCompleted(ctx, s.db, referenceID)
	return rec, storeErr(err)
}

func (s *Store) MarkTransactionFailed(ctx context.Context, referenceID string) (ledger.Transaction, error) {
	rec, err := s.txs.MarkFailed(ctx, s.db, referenceID)
	return rec, storeErr(err)
}

// CompleteDeposit marks the deposit completed and credits its owner in one database
// transaction. A concurrent caller blocks on the row lock and then sees ErrAlreadyCompleted.
func (s *Store) CompleteDeposit(ctx context.Context, referenceID string) (ledger.Transaction, money.Amount, error) {
	var (
		rec     ledger.Transaction
		balance money.Amount
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		rec, err = s.txs.MarkCompleted(ctx, tx, referenceID)
		if err != nil {
			return err
		}

		if rec.Type != ledger.TxDeposit {
			return fmt.Errorf("complete deposit %s: record is a %s", referenceID, rec.Type)
		}

		balance, err = s.users.AdjustBalance(ctx, tx, rec.UserID, rec.Amount)
		if err != nil {
			return fmt.Errorf("credit deposit: %w", err)
		}

		return nil
	})
	if err != nil {
		return rec, 0, storeErr(err)
	}

	return rec, balance, nil
}

func (s *Store) RecordGameRound(ctx context.Context, round ledger.GameRound) error {
	return storeErr(s.rounds.Insert(ctx, s.db, round))
}

// SettleRound credits the win and records the round in one database transaction.
func (s *Store) SettleRound(ctx context.Context, round ledger.GameRound) (money.Amount, error) {
	var balance money.Amount

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error

		if round.Win > 0 {
			balance, err = s.users.AdjustBalance(ctx, tx, round.UserID, round.Win)
		} else {
			balance, err = s.users.GetBalance(ctx, tx, round.UserID)
		}
		if err != nil {
			return fmt.Errorf("credit win: %w", err)
		}

		return s.rounds.Insert(ctx, tx, round)
	})
	if err != nil {
		return 0, storeErr(err)
	}

	return balance, nil
}

func (s *Store) QueryRecentStats(ctx context.Context, userID uint64, window time.Duration) (ledger.Stats, error) {
	var since sql.NullTime
	if window > 0 {
		since = sql.NullTime{Time: s.now().Add(-window), Valid: true}
	}

	stats, err := s.rounds.Stats(ctx, s.db, userID, since)
	return stats, storeErr(err)
}

func (s *Store) QueryAdminStats(ctx context.Context, window time.Duration) (ledger.AdminStats, error) {
	var since time.Time
	if window > 0 {
		since = s.now().Add(-window)
	}

	stats, err := s.txs.AdminStats(ctx, s.db, since)
	return stats, storeErr(err)
}

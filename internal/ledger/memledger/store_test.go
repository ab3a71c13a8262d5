package memledger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFunded(t *testing.T, userID uint64, balance money.Amount) *Store {
	t.Helper()

	s := New()
	ctx := context.Background()

	_, err := s.UpsertUserIfAbsent(ctx, userID, "u")
	require.NoError(t, err)

	if balance > 0 {
		_, err = s.AdjustBalance(ctx, userID, balance)
		require.NoError(t, err)
	}

	return s
}

func TestStore_UpsertKeepsBalance(t *testing.T) {
	s := newFunded(t, 1, 500)

	acc, err := s.UpsertUserIfAbsent(context.Background(), 1, "")
	require.NoError(t, err)
	assert.EqualValues(t, 500, acc.Balance)
	assert.Equal(t, "u", acc.Username)
}

func TestStore_AdjustBalance(t *testing.T) {
	s := newFunded(t, 1, 100)
	ctx := context.Background()

	_, err := s.AdjustBalance(ctx, 1, -101)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	bal, err := s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 100, bal)

	bal, err = s.AdjustBalance(ctx, 1, -100)
	require.NoError(t, err)
	assert.Zero(t, bal)

	_, err = s.AdjustBalance(ctx, 2, 1)
	require.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestStore_ConcurrentDebitsNeverNegative(t *testing.T) {
	s := newFunded(t, 1, 1_000)

	var (
		wg sync.WaitGroup
		ok atomic.Int64
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.AdjustBalance(context.Background(), 1, -70)
			if err == nil {
				ok.Add(1)
			}
		}()
	}

	wg.Wait()

	bal, err := s.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 14, ok.Load())
	assert.EqualValues(t, 1_000-14*70, bal)
}

func TestStore_Transactions(t *testing.T) {
	s := newFunded(t, 1, 0)
	ctx := context.Background()

	rec := ledger.Transaction{
		UserID: 1, Type: ledger.TxDeposit, Amount: 300,
		Status: ledger.StatusPending, ReferenceID: "inv",
	}

	id, err := s.RecordTransaction(ctx, rec)
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = s.RecordTransaction(ctx, rec)
	require.ErrorIs(t, err, ledger.ErrDuplicateReference)

	rec.ReferenceID = ""
	_, err = s.RecordTransaction(ctx, rec)
	require.NoError(t, err)
	_, err = s.RecordTransaction(ctx, rec)
	require.NoError(t, err, "empty references are not unique")

	done, bal, err := s.CompleteDeposit(ctx, "inv")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, done.Status)
	assert.EqualValues(t, 300, bal)

	_, _, err = s.CompleteDeposit(ctx, "inv")
	require.ErrorIs(t, err, ledger.ErrAlreadyCompleted)

	_, err = s.MarkTransactionFailed(ctx, "inv")
	require.ErrorIs(t, err, ledger.ErrAlreadyCompleted)

	_, err = s.MarkTransactionCompleted(ctx, "missing")
	require.ErrorIs(t, err, ledger.ErrTransactionNotFound)

	bal, err = s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 300, bal)
}

func TestStore_ConcurrentCompleteDepositCreditsOnce(t *testing.T) {
	s := newFunded(t, 1, 0)
	ctx := context.Background()

	_, err := s.RecordTransaction(ctx, ledger.Transaction{
		UserID: 1, Type: ledger.TxDeposit, Amount: 250,
		Status: ledger.StatusPending, ReferenceID: "inv",
	})
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		credits atomic.Int64
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, _, err := s.CompleteDeposit(ctx, "inv")
			if err == nil {
				credits.Add(1)
			}
		}()
	}

	wg.Wait()

	assert.EqualValues(t, 1, credits.Load())

	bal, err := s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 250, bal)
}

func TestStore_StatsWindows(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for _, id := range []uint64{1, 2} {
		_, err := s.UpsertUserIfAbsent(ctx, id, "")
		require.NoError(t, err)
	}

	rounds := []ledger.GameRound{
		{ID: uuid.New(), UserID: 1, Bet: 100, Win: 300, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), UserID: 1, Bet: 100, Win: 0, CreatedAt: now.Add(-time.Hour)},
		{ID: uuid.New(), UserID: 1, Bet: 100, Win: 100, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: uuid.New(), UserID: 2, Bet: 100, Win: 1_000, CreatedAt: now},
	}
	for _, r := range rounds {
		require.NoError(t, s.RecordGameRound(ctx, r))
	}

	week, err := s.QueryRecentStats(ctx, 1, 7*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, week.Games)
	assert.EqualValues(t, 200, week.TotalBet)
	assert.EqualValues(t, 300, week.TotalWin)
	assert.True(t, week.AvgRTP.Equal(decimal.RequireFromString("1.5")), week.AvgRTP.String())

	all, err := s.QueryRecentStats(ctx, 1, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Games)

	_, err = s.RecordTransaction(ctx, ledger.Transaction{UserID: 1, Type: ledger.TxDeposit, Amount: 500, Status: ledger.StatusCompleted, ReferenceID: "a"})
	require.NoError(t, err)
	_, err = s.RecordTransaction(ctx, ledger.Transaction{UserID: 2, Type: ledger.TxDeposit, Amount: 900, Status: ledger.StatusPending, ReferenceID: "b"})
	require.NoError(t, err)
	_, err = s.RecordTransaction(ctx, ledger.Transaction{UserID: 2, Type: ledger.TxWithdraw, Amount: 100, Status: ledger.StatusCompleted, ReferenceID: "c"})
	require.NoError(t, err)

	admin, err := s.QueryAdminStats(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, ledger.AdminStats{Users: 2, Deposits: 500, Withdrawals: 100, Transactions: 3}, admin)
}

func TestStore_SettleRoundDuplicateLeavesBalance(t *testing.T) {
	s := newFunded(t, 1, 0)
	ctx := context.Background()

	round := ledger.GameRound{ID: uuid.New(), UserID: 1, Bet: 100, Win: 150}

	bal, err := s.SettleRound(ctx, round)
	require.NoError(t, err)
	assert.EqualValues(t, 150, bal)

	_, err = s.SettleRound(ctx, round)
	require.Error(t, err)

	bal, err = s.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 150, bal)
}

package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdraw_Success(t *testing.T) {
	store := fundedStore(t, 5, 1_000)
	gw := newFakeGateway()
	notes := &recordingNotifier{}
	e := New(store, gw, notes, testLimits, WithAsset("TON"))
	ctx := context.Background()

	res, err := e.Withdraw(ctx, 5, 400)
	require.NoError(t, err)
	assert.Equal(t, "chk_1", res.Check.ID)
	assert.EqualValues(t, 600, res.NewBalance)

	require.Len(t, gw.checks, 1)
	assert.Equal(t, gateway.CheckRequest{Asset: "TON", Amount: 400, PinToUserID: 5}, gw.checks[0])

	rec, err := store.GetTransaction(ctx, "chk_1")
	require.NoError(t, err)
	assert.Equal(t, ledger.TxWithdraw, rec.Type)
	assert.Equal(t, ledger.StatusCompleted, rec.Status)
	assert.Equal(t, res.Check.URL, rec.ReferenceURL)

	events := notes.all()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindWithdrawal, events[0].Kind)
	assert.Equal(t, "chk_1", events[0].Reference)

	stats, err := e.AdminStats(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 400, stats.Withdrawals)
}

func TestWithdraw_Rejections(t *testing.T) {
	store := fundedStore(t, 5, 1_000)
	gw := newFakeGateway()
	e := New(store, gw, nil, testLimits)
	ctx := context.Background()

	_, err := e.Withdraw(ctx, 5, 99)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = e.Withdraw(ctx, 5, 1_001)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = e.Withdraw(ctx, 404, 100)
	require.ErrorIs(t, err, ledger.ErrUserNotFound)

	assert.Empty(t, gw.checks, "no check for rejected withdrawals")

	bal, _ := store.GetBalance(ctx, 5)
	assert.EqualValues(t, 1_000, bal)
}

func TestWithdraw_GatewayFailureRestoresBalance(t *testing.T) {
	store := fundedStore(t, 5, 1_000)
	gw := newFakeGateway()
	gw.checkErr = &gateway.Error{Op: "createCheck", Code: 400, Name: "NOT_ENOUGH_COINS"}

	notes := &recordingNotifier{}
	e := New(store, gw, notes, testLimits)

	_, err := e.Withdraw(context.Background(), 5, 1_000)

	var gerr *gateway.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "NOT_ENOUGH_COINS", gerr.Name)

	bal, err := store.GetBalance(context.Background(), 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000, bal)
	assert.Empty(t, notes.all())
}

func TestWithdraw_AuditFailureReturnsCheck(t *testing.T) {
	store := fundedStore(t, 5, 1_000)
	storeErr := errors.New("insert failed")
	store.recordErr = storeErr

	e := New(store, newFakeGateway(), nil, testLimits)

	res, err := e.Withdraw(context.Background(), 5, 300)
	require.ErrorIs(t, err, storeErr)
	assert.Equal(t, "chk_1", res.Check.ID, "the issued check is still handed to the user")

	bal, _ := store.GetBalance(context.Background(), 5)
	assert.EqualValues(t, 700, bal, "funds left through the check")
}

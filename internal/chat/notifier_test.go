package chat

import (
	"context"
	"testing"

	"github.com/fastprodman/casinobot/internal/notify"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminNotifier(t *testing.T) {
	t.Parallel()

	api := &fakeSender{failChat: map[int64]bool{2: true}}
	n := NewAdminNotifier(api, []int64{1, 2, 3})

	err := n.Notify(context.Background(), notify.Event{
		Kind:      notify.KindWithdrawal,
		UserID:    42,
		Amount:    1250,
		Asset:     "USDT",
		Reference: "chk_<9>",
	})
	require.ErrorContains(t, err, "notify admin 2")

	texts := api.texts()
	require.Len(t, texts, 2, "a failing admin does not stop the others")

	assert.Contains(t, texts[0], "New withdrawal")
	assert.Contains(t, texts[0], "<code>42</code>")
	assert.Contains(t, texts[0], "12.50 USDT")
	assert.Contains(t, texts[0], "chk_&lt;9&gt;")

	msg, ok := api.last().(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(3), msg.ChatID)
}

func TestAdminNotifier_CanceledContext(t *testing.T) {
	t.Parallel()

	api := &fakeSender{}
	n := NewAdminNotifier(api, []int64{1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, notify.Event{Kind: notify.KindDeposit})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.texts())
}

func TestEventText_Deposit(t *testing.T) {
	t.Parallel()

	got := eventText(notify.Event{Kind: notify.KindDeposit, UserID: 5, Amount: 100, Asset: "TON", Reference: "77"})
	assert.Equal(t, "💰 <b>New deposit</b>\n\nUser: <code>5</code>\nAmount: <code>1.00 TON</code>\nInvoice: <code>77</code>", got)
}

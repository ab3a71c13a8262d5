package cryptopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleUpdate = `{"update_id":1,"update_type":"invoice_paid","request_date":"2024-05-10T12:00:00.000Z",` +
	`"payload":{"invoice_id":4242,"status":"paid","asset":"USDT","amount":"12.50","payload":"user_7"}}`

func TestWebhookVerifier(t *testing.T) {
	v := NewWebhookVerifier("secret-token")
	body := []byte(sampleUpdate)

	key := sha256.Sum256([]byte("secret-token"))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, v.Sign(body))
	require.NoError(t, v.Verify(body, want))

	assert.ErrorIs(t, v.Verify(append(body, ' '), want), ErrBadSignature)
	assert.ErrorIs(t, v.Verify(body, "zz"), ErrBadSignature)
	assert.ErrorIs(t, NewWebhookVerifier("other").Verify(body, want), ErrBadSignature)
}

func TestParseUpdate(t *testing.T) {
	upd, err := ParseUpdate([]byte(sampleUpdate))
	require.NoError(t, err)

	assert.Equal(t, UpdateInvoicePaid, upd.Type)
	assert.Equal(t, "4242", upd.Invoice.ID)
	assert.Equal(t, gateway.InvoicePaid, upd.Invoice.Status)
	assert.EqualValues(t, 1_250, upd.Invoice.Amount)
	assert.Equal(t, "user_7", upd.Payload)

	_, err = ParseUpdate([]byte(`{`))
	assert.Error(t, err)
}

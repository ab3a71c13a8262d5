package cryptopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fastprodman/casinobot/internal/gateway"
)

const (
	SignatureHeader = "crypto-pay-api-signature"

	UpdateInvoicePaid = "invoice_paid"
)

var ErrBadSignature = errors.New("bad webhook signature")

// WebhookVerifier checks update signatures: hex(HMAC-SHA256(key=SHA256(token), body)).
type WebhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(token string) *WebhookVerifier {
	sum := sha256.Sum256([]byte(token))
	return &WebhookVerifier{secret: sum[:]}
}

func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

func (v *WebhookVerifier) Verify(body []byte, signature string) error {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)

	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}

	return nil
}

type Update struct {
	ID      int64
	Type    string
	Invoice gateway.Invoice
	Payload string
}

func ParseUpdate(body []byte) (Update, error) {
	var raw struct {
		UpdateID   int64      `json:"update_id"`
		UpdateType string     `json:"update_type"`
		Payload    invoiceDTO `json:"payload"`
	}

	err := json.Unmarshal(body, &raw)
	if err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}

	inv, err := raw.Payload.toInvoice()
	if err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}

	return Update{
		ID:      raw.UpdateID,
		Type:    raw.UpdateType,
		Invoice: inv,
		Payload: raw.Payload.Payload,
	}, nil
}

package cryptopay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New("test-token", WithBaseURL(srv.URL+"/"), WithHTTPClient(srv.Client()))
}

func TestClient_CreateInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/createInvoice", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get(tokenHeader))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "USDT", body["asset"])
		assert.Equal(t, "12.50", body["amount"])
		assert.Equal(t, "Deposit user_7", body["description"])

		_, _ = w.Write([]byte(`{"ok":true,"result":{"invoice_id":4242,"status":"active","asset":"USDT","amount":"12.5","bot_invoice_url":"https://t.me/CryptoBot?start=IV4242"}}`))
	})

	inv, err := c.CreateInvoice(context.Background(), gateway.InvoiceRequest{
		Asset: "USDT", Amount: 1_250, Description: "Deposit user_7",
	})
	require.NoError(t, err)
	assert.Equal(t, "4242", inv.ID)
	assert.Equal(t, gateway.InvoiceActive, inv.Status)
	assert.EqualValues(t, 1_250, inv.Amount)
	assert.Equal(t, "https://t.me/CryptoBot?start=IV4242", inv.PayURL)
}

func TestClient_GetInvoiceStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/getInvoices", r.URL.Path)
		assert.Equal(t, "77", r.URL.Query().Get("invoice_ids"))

		_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[{"invoice_id":77,"status":"paid","amount":"5"}]}}`))
	})

	status, err := c.GetInvoiceStatus(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, gateway.InvoicePaid, status)
}

func TestClient_GetInvoiceStatus_Missing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"items":[]}}`))
	})

	_, err := c.GetInvoiceStatus(context.Background(), "77")

	var gerr *gateway.Error
	require.ErrorAs(t, err, &gerr)
	assert.ErrorIs(t, err, errMalformed)
}

func TestClient_CreateCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createCheck", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3.00", body["amount"])
		assert.Equal(t, "99", body["pin_to_user_id"])

		_, _ = w.Write([]byte(`{"ok":true,"result":{"check_id":5,"bot_check_url":"https://t.me/CryptoBot?start=CQ5"}}`))
	})

	chk, err := c.CreateCheck(context.Background(), gateway.CheckRequest{Asset: "USDT", Amount: 300, PinToUserID: 99})
	require.NoError(t, err)
	assert.Equal(t, gateway.Check{ID: "5", URL: "https://t.me/CryptoBot?start=CQ5"}, chk)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantName string
	}{
		{name: "api_error", status: http.StatusBadRequest, body: `{"ok":false,"error":{"code":400,"name":"NOT_ENOUGH_COINS"}}`, wantCode: 400, wantName: "NOT_ENOUGH_COINS"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"ok":false,"error":{"code":401,"name":"UNAUTHORIZED"}}`, wantCode: 401, wantName: "UNAUTHORIZED"},
		{name: "gateway_html", status: http.StatusBadGateway, body: `<html>bad gateway</html>`, wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateCheck(context.Background(), gateway.CheckRequest{Asset: "USDT", Amount: 100})

			var gerr *gateway.Error
			require.True(t, errors.As(err, &gerr), "want *gateway.Error, got %T", err)
			assert.Equal(t, "createCheck", gerr.Op)
			assert.Equal(t, tt.wantCode, gerr.Code)
			assert.Equal(t, tt.wantName, gerr.Name)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New("t", WithBaseURL(srv.URL))

	_, err := c.CreateInvoice(context.Background(), gateway.InvoiceRequest{Asset: "USDT", Amount: 100})

	var gerr *gateway.Error
	require.ErrorAs(t, err, &gerr)
	assert.Zero(t, gerr.Code)
	assert.Error(t, gerr.Err)
}

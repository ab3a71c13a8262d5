package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fastprodman/casinobot/internal/gateway/cryptopay"
	"github.com/fastprodman/casinobot/internal/ledger"
)

// CryptoPayWebhookHandler handles POST /api/cryptopay/webhook. Only invoice_paid updates are
// acted on, through the same idempotent confirmation used by user polls. Any non-200 reply makes
// the provider retry, so unknown invoices are acknowledged.
func (h *HandlerProvider) CryptoPayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	//nolint:errcheck
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	err = h.webhook.Verify(body, r.Header.Get(cryptopay.SignatureHeader))
	if err != nil {
		slog.Warn("webhook rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "bad signature")
		return
	}

	upd, err := cryptopay.ParseUpdate(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid update")
		return
	}

	if upd.Type != cryptopay.UpdateInvoicePaid {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	res, err := h.svc.ConfirmDeposit(r.Context(), upd.Invoice.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			slog.Warn("webhook for unknown invoice", "invoice_id", upd.Invoice.ID)
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			return
		}

		writeServiceError(w, r, err)
		return
	}

	slog.Info("webhook processed", "invoice_id", upd.Invoice.ID, "status", res.Status, "already_settled", res.AlreadySettled)

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Package gateway is the contract between the settlement engine and the external payment
// provider that issues deposit invoices and withdrawal checks.
package gateway

import (
	"context"
	"fmt"

	"github.com/fastprodman/casinobot/internal/money"
)

type InvoiceStatus string

const (
	InvoiceActive  InvoiceStatus = "active"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceExpired InvoiceStatus = "expired"
)

type InvoiceRequest struct {
	Asset       string
	Amount      money.Amount
	Description string
	// Payload is echoed back by the provider in webhook updates.
	Payload string
}

type Invoice struct {
	ID     string
	PayURL string
	Status InvoiceStatus
	Asset  string
	Amount money.Amount
}

type CheckRequest struct {
	Asset  string
	Amount money.Amount
	// PinToUserID restricts activation to one Telegram user when non-zero.
	PinToUserID uint64
}

type Check struct {
	ID  string
	URL string
}

type Gateway interface {
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error)
	CreateCheck(ctx context.Context, req CheckRequest) (Check, error)
}

// Error is any failure talking to the provider: transport errors, non-2xx responses and
// responses with ok=false. Match it with errors.As.
type Error struct {
	Op   string
	Code int    // provider or HTTP status code, 0 for transport errors
	Name string // provider error name, e.g. "INSUFFICIENT_FUNDS"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Name != "":
		return fmt.Sprintf("gateway %s: %d %s", e.Op, e.Code, e.Name)
	case e.Err != nil:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("gateway %s: status %d", e.Op, e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Package cryptopay implements gateway.Gateway against the Crypto Pay API of @CryptoBot.
package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/money"
)

const (
	DefaultBaseURL = "https://pay.crypt.bot/api"
	tokenHeader    = "Crypto-Pay-Api-Token"

	maxResponseBytes = 1 << 20
)

var _ gateway.Gateway = (*Client)(nil)

var errMalformed = errors.New("malformed response")

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

func New(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  *apiError       `json:"error"`
}

type apiError struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type invoiceDTO struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	PayURL    string `json:"bot_invoice_url"`
	LegacyURL string `json:"pay_url"`
	Payload   string `json:"payload"`
}

func (d invoiceDTO) toInvoice() (gateway.Invoice, error) {
	inv := gateway.Invoice{
		ID:     strconv.FormatInt(d.InvoiceID, 10),
		PayURL: d.PayURL,
		Status: gateway.InvoiceStatus(d.Status),
		Asset:  d.Asset,
	}

	if inv.PayURL == "" {
		inv.PayURL = d.LegacyURL
	}

	if d.Amount != "" {
		amount, err := money.Parse(d.Amount)
		if err != nil {
			return gateway.Invoice{}, fmt.Errorf("%w: invoice amount: %w", errMalformed, err)
		}
		inv.Amount = amount
	}

	return inv, nil
}

type checkDTO struct {
	CheckID int64  `json:"check_id"`
	URL     string `json:"bot_check_url"`
}

func (c *Client) CreateInvoice(ctx context.Context, req gateway.InvoiceRequest) (gateway.Invoice, error) {
	const op = "createInvoice"

	body := map[string]string{
		"asset":  req.Asset,
		"amount": req.Amount.String(),
	}
	if req.Description != "" {
		body["description"] = req.Description
	}
	if req.Payload != "" {
		body["payload"] = req.Payload
	}

	var dto invoiceDTO

	err := c.call(ctx, http.MethodPost, op, nil, body, &dto)
	if err != nil {
		return gateway.Invoice{}, err
	}

	inv, err := dto.toInvoice()
	if err != nil {
		return gateway.Invoice{}, &gateway.Error{Op: op, Err: err}
	}

	return inv, nil
}

func (c *Client) GetInvoiceStatus(ctx context.Context, invoiceID string) (gateway.InvoiceStatus, error) {
	const op = "getInvoices"

	var page struct {
		Items []invoiceDTO `json:"items"`
	}

	err := c.call(ctx, http.MethodGet, op, url.Values{"invoice_ids": {invoiceID}}, nil, &page)
	if err != nil {
		return "", err
	}

	for _, item := range page.Items {
		if strconv.FormatInt(item.InvoiceID, 10) == invoiceID {
			return gateway.InvoiceStatus(item.Status), nil
		}
	}

	return "", &gateway.Error{Op: op, Err: fmt.Errorf("%w: invoice %s not returned", errMalformed, invoiceID)}
}

func (c *Client) CreateCheck(ctx context.Context, req gateway.CheckRequest) (gateway.Check, error) {
	const op = "createCheck"

	body := map[string]string{
		"asset":  req.Asset,
		"amount": req.Amount.String(),
	}
	if req.PinToUserID != 0 {
		body["pin_to_user_id"] = strconv.FormatUint(req.PinToUserID, 10)
	}

	var dto checkDTO

	err := c.call(ctx, http.MethodPost, op, nil, body, &dto)
	if err != nil {
		return gateway.Check{}, err
	}

	return gateway.Check{ID: strconv.FormatInt(dto.CheckID, 10), URL: dto.URL}, nil
}

// call performs one API method and decodes its result into out. Every failure is a
// *gateway.Error.
func (c *Client) call(ctx context.Context, method, op string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + "/" + op
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &gateway.Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &gateway.Error{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}

	req.Header.Set(tokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &gateway.Error{Op: op, Err: err}
	}
	//nolint:errcheck
	defer resp.Body.Close()

	var env apiResponse

	err = json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&env)
	if err != nil {
		if resp.StatusCode/100 != 2 {
			return &gateway.Error{Op: op, Code: resp.StatusCode}
		}

		return &gateway.Error{Op: op, Code: resp.StatusCode, Err: fmt.Errorf("%w: %w", errMalformed, err)}
	}

	if !env.OK {
		gerr := &gateway.Error{Op: op, Code: resp.StatusCode}
		if env.Error != nil {
			gerr.Code = env.Error.Code
			gerr.Name = env.Error.Name
		}

		return gerr
	}

	err = json.Unmarshal(env.Result, out)
	if err != nil {
		return &gateway.Error{Op: op, Code: resp.StatusCode, Err: fmt.Errorf("%w: %w", errMalformed, err)}
	}

	return nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fastprodman/casinobot/internal/gateway"
	"github.com/fastprodman/casinobot/internal/games"
	"github.com/fastprodman/casinobot/internal/identity"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/services/settlement"
)

const maxBodyBytes = 1 << 20

// Settlement is the part of the settlement engine the web API drives.
type Settlement interface {
	WebAppInit(ctx context.Context, id identity.Identity) (settlement.Profile, error)
	PlaceBet(ctx context.Context, userID uint64, variant games.Variant, amount money.Amount) (settlement.BetResult, error)
	ConfirmDeposit(ctx context.Context, referenceID string) (settlement.DepositResult, error)
}

type Authenticator interface {
	Verify(initData string) (identity.Identity, error)
}

type WebhookVerifier interface {
	Verify(body []byte, signature string) error
}

// HandlerProvider wraps the settlement engine and exposes HTTP handlers.
type HandlerProvider struct {
	svc     Settlement
	auth    Authenticator
	webhook WebhookVerifier
}

// NewHandler returns a new Handler provider. webhook may be nil when the Crypto Pay webhook is
// not exposed.
func NewHandler(svc Settlement, auth Authenticator, webhook WebhookVerifier) *HandlerProvider {
	return &HandlerProvider{svc: svc, auth: auth, webhook: webhook}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// decodeBody reads a single JSON object into dst. It writes the 400 itself and reports false on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	//nolint:errcheck
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "empty body")
		case errors.Is(err, money.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, "invalid JSON")
		}

		return false
	}

	return true
}

// authenticate verifies initData. It writes the rejection itself and reports false on failure.
func (h *HandlerProvider) authenticate(w http.ResponseWriter, initData string) (identity.Identity, bool) {
	id, err := h.auth.Verify(initData)
	if err != nil {
		if errors.Is(err, identity.ErrMissingUser) {
			writeError(w, http.StatusBadRequest, "missing user")
			return identity.Identity{}, false
		}

		writeError(w, http.StatusForbidden, "invalid init data")
		return identity.Identity{}, false
	}

	return id, true
}

// writeServiceError maps settlement errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var gerr *gateway.Error

	switch {
	case errors.Is(err, settlement.ErrInvalidAmount), errors.Is(err, games.ErrUnknownGame):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case errors.As(err, &gerr):
		slog.Warn("gateway failure", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "payment provider unavailable, try again later")
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- Handlers ---

type initRequest struct {
	InitData string `json:"initData"`
}

type statsResponse struct {
	Games    int64        `json:"games"`
	TotalBet money.Amount `json:"total_bet"`
	TotalWin money.Amount `json:"total_win"`
}

type initResponse struct {
	Success  bool          `json:"success"`
	Balance  money.Amount  `json:"balance"`
	Username string        `json:"username"`
	Stats    statsResponse `json:"stats"`
}

// WebAppInitHandler handles POST /api/webapp/init
func (h *HandlerProvider) WebAppInitHandler(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, ok := h.authenticate(w, req.InitData)
	if !ok {
		return
	}

	p, err := h.svc.WebAppInit(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, initResponse{
		Success:  true,
		Balance:  p.Account.Balance,
		Username: p.Account.Username,
		Stats: statsResponse{
			Games:    p.Stats.Games,
			TotalBet: p.Stats.TotalBet,
			TotalWin: p.Stats.TotalWin,
		},
	})
}

type playRequest struct {
	InitData  string       `json:"initData"`
	GameType  string       `json:"gameType"`
	BetAmount money.Amount `json:"betAmount"`
}

type playResponse struct {
	Success    bool          `json:"success"`
	Result     games.Outcome `json:"result"`
	RoundID    string        `json:"round_id"`
	NewBalance money.Amount  `json:"new_balance"`
}

// GamePlayHandler handles POST /api/game/play
func (h *HandlerProvider) GamePlayHandler(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, ok := h.authenticate(w, req.InitData)
	if !ok {
		return
	}

	variant, err := games.ParseVariant(req.GameType)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.BetAmount <= 0 {
		writeError(w, http.StatusBadRequest, "betAmount required")
		return
	}

	res, err := h.svc.PlaceBet(r.Context(), id.UserID, variant, req.BetAmount)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, playResponse{
		Success:    true,
		Result:     res.Outcome,
		RoundID:    res.Round.ID.String(),
		NewBalance: res.NewBalance,
	})
}

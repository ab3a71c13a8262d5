package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/fastprodman/casinobot/internal/identity"
	"github.com/fastprodman/casinobot/internal/ledger"
)

// EnsureAccount registers a user on first contact and refreshes activity afterwards.
func (e *Engine) EnsureAccount(ctx context.Context, userID uint64, username string) (ledger.Account, error) {
	acc, err := e.store.UpsertUserIfAbsent(ctx, userID, username)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("ensure account: %w", err)
	}

	return acc, nil
}

// Profile returns the account with all-time round stats.
func (e *Engine) Profile(ctx context.Context, userID uint64) (Profile, error) {
	acc, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: %w", err)
	}

	stats, err := e.store.QueryRecentStats(ctx, userID, 0)
	if err != nil {
		return Profile{}, fmt.Errorf("profile stats: %w", err)
	}

	return Profile{Account: acc, Stats: stats}, nil
}

// WebAppInit registers the verified caller and returns their recent activity.
func (e *Engine) WebAppInit(ctx context.Context, id identity.Identity) (Profile, error) {
	acc, err := e.EnsureAccount(ctx, id.UserID, id.Username)
	if err != nil {
		return Profile{}, err
	}

	stats, err := e.store.QueryRecentStats(ctx, id.UserID, WebAppStatsWindow)
	if err != nil {
		return Profile{}, fmt.Errorf("webapp stats: %w", err)
	}

	return Profile{Account: acc, Stats: stats}, nil
}

func (e *Engine) AdminStats(ctx context.Context, window time.Duration) (ledger.AdminStats, error) {
	stats, err := e.store.QueryAdminStats(ctx, window)
	if err != nil {
		return ledger.AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}

	return stats, nil
}

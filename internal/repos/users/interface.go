package users

import (
	"context"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
)

// Users owns the users table. Every method runs on q, which is either the pool or an open
// transaction.
type Users interface {
	Upsert(ctx context.Context, q pgutils.DBTX, userID uint64, username string) (ledger.Account, error)
	Get(ctx context.Context, q pgutils.DBTX, userID uint64) (ledger.Account, error)
	Exists(ctx context.Context, q pgutils.DBTX, userID uint64) error
	GetBalance(ctx context.Context, q pgutils.DBTX, userID uint64) (money.Amount, error)
	AdjustBalance(ctx context.Context, q pgutils.DBTX, userID uint64, delta money.Amount) (money.Amount, error)
}

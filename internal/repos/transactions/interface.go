package transactions

import (
	"context"
	"time"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
)

type Transactions interface {
	Insert(ctx context.Context, q pgutils.DBTX, rec ledger.Transaction) (int64, error)
	GetByReference(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error)
	MarkCompleted(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error)
	MarkFailed(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error)
	AdminStats(ctx context.Context, q pgutils.DBTX, since time.Time) (ledger.AdminStats, error)
}

package rounds

import (
	"context"
	"database/sql"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
)

type Rounds interface {
	Insert(ctx context.Context, q pgutils.DBTX, round ledger.GameRound) error
	// Stats aggregates a user's rounds created after since; an invalid since covers all rounds.
	Stats(ctx context.Context, q pgutils.DBTX, userID uint64, since sql.NullTime) (ledger.Stats, error)
}

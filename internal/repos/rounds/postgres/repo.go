package rounds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/repos/rounds"
)

var _ rounds.Rounds = (*roundsRepo)(nil)

type roundsRepo struct{}

func New() *roundsRepo {
	return &roundsRepo{}
}

func (r *roundsRepo) Insert(ctx context.Context, q pgutils.DBTX, round ledger.GameRound) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO game_rounds (id, user_id, game, bet_amount, win_amount, multiplier, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, COALESCE($8, now()))
	`,
		round.ID, round.UserID, round.Game, int64(round.Bet), int64(round.Win),
		round.Multiplier, string(round.Outcome), nullTime(round),
	)
	if err != nil {
		return fmt.Errorf("insert game round: %w", err)
	}

	return nil
}

func nullTime(round ledger.GameRound) sql.NullTime {
	return sql.NullTime{Time: round.CreatedAt, Valid: !round.CreatedAt.IsZero()}
}

func (r *roundsRepo) Stats(ctx context.Context, q pgutils.DBTX, userID uint64, since sql.NullTime) (ledger.Stats, error) {
	var stats ledger.Stats

	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(bet_amount), 0)::BIGINT,
			COALESCE(SUM(win_amount), 0)::BIGINT,
			COALESCE(AVG(win_amount::numeric / NULLIF(bet_amount, 0)), 0)
		FROM game_rounds
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR created_at > $2)
	`, userID, since).Scan(&stats.Games, &stats.TotalBet, &stats.TotalWin, &stats.AvgRTP)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("round stats: %w", err)
	}

	return stats, nil
}

package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

const referenceConstraint = "transactions_reference_id_key"

const txColumns = `id, user_id, type, amount, status, COALESCE(reference_id, ''), reference_url, created_at, updated_at`

type transactionsRepo struct{}

func New() *transactionsRepo {
	return &transactionsRepo{}
}

func scanTransaction(row *sql.Row) (ledger.Transaction, error) {
	var rec ledger.Transaction

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Type, &rec.Amount, &rec.Status,
		&rec.ReferenceID, &rec.ReferenceURL, &rec.CreatedAt, &rec.UpdatedAt,
	)

	return rec, err
}

func (r *transactionsRepo) Insert(ctx context.Context, q pgutils.DBTX, rec ledger.Transaction) (int64, error) {
	var id int64

	err := q.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, type, amount, status, reference_id, reference_url)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id
	`, rec.UserID, string(rec.Type), int64(rec.Amount), string(rec.Status), rec.ReferenceID, rec.ReferenceURL).Scan(&id)
	if err != nil {
		if pgutils.IsUniqueViolation(err, referenceConstraint) {
			return 0, ledger.ErrDuplicateReference
		}

		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	return id, nil
}

func (r *transactionsRepo) GetByReference(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error) {
	rec, err := scanTransaction(q.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE reference_id = $1
	`, referenceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Transaction{}, ledger.ErrTransactionNotFound
		}

		return ledger.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return rec, nil
}

// MarkCompleted is the only pending->completed transition. Exactly one concurrent caller per
// reference gets the row back; the others see ErrAlreadyCompleted.
func (r *transactionsRepo) MarkCompleted(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error) {
	return r.transition(ctx, q, referenceID, ledger.StatusCompleted)
}

func (r *transactionsRepo) MarkFailed(ctx context.Context, q pgutils.DBTX, referenceID string) (ledger.Transaction, error) {
	return r.transition(ctx, q, referenceID, ledger.StatusFailed)
}

func (r *transactionsRepo) transition(ctx context.Context, q pgutils.DBTX, referenceID string, to ledger.TxStatus) (ledger.Transaction, error) {
	rec, err := scanTransaction(q.QueryRowContext(ctx, `
		UPDATE transactions
		SET status = $2,
		    updated_at = now()
		WHERE reference_id = $1
		  AND status = 'pending'
		RETURNING `+txColumns,
		referenceID, string(to)))
	if err == nil {
		return rec, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, fmt.Errorf("mark transaction %s: %w", to, err)
	}

	cur, err := r.GetByReference(ctx, q, referenceID)
	if err != nil {
		return ledger.Transaction{}, err
	}

	switch cur.Status {
	case ledger.StatusCompleted:
		return cur, ledger.ErrAlreadyCompleted
	case ledger.StatusFailed:
		return cur, ledger.ErrTransactionFailed
	default:
		return cur, fmt.Errorf("mark transaction %s: unexpected status %q", to, cur.Status)
	}
}

// AdminStats counts every record created since the given time. Money sums only include
// completed deposits and withdrawals.
func (r *transactionsRepo) AdminStats(ctx context.Context, q pgutils.DBTX, since time.Time) (ledger.AdminStats, error) {
	var stats ledger.AdminStats

	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(DISTINCT user_id),
			COALESCE(SUM(amount) FILTER (WHERE type = 'deposit' AND status = 'completed'), 0)::BIGINT,
			COALESCE(SUM(amount) FILTER (WHERE type = 'withdraw' AND status = 'completed'), 0)::BIGINT,
			COUNT(*)
		FROM transactions
		WHERE created_at >= $1
	`, since).Scan(&stats.Users, &stats.Deposits, &stats.Withdrawals, &stats.Transactions)
	if err != nil {
		return ledger.AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}

	return stats, nil
}

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/casinobot/internal/infra/pgutils"
	"github.com/fastprodman/casinobot/internal/ledger"
	"github.com/fastprodman/casinobot/internal/money"
	"github.com/fastprodman/casinobot/internal/repos/users"
)

var _ users.Users = (*usersRepo)(nil)

type usersRepo struct{}

func New() *usersRepo {
	return &usersRepo{}
}

const accountColumns = `id, username, balance, created_at, last_active_at`

func scanAccount(row *sql.Row) (ledger.Account, error) {
	var acc ledger.Account

	err := row.Scan(&acc.UserID, &acc.Username, &acc.Balance, &acc.CreatedAt, &acc.LastActiveAt)

	return acc, err
}

// Upsert creates the user with a zero balance. An existing row only gets its username and
// activity timestamp refreshed.
func (r *usersRepo) Upsert(ctx context.Context, q pgutils.DBTX, userID uint64, username string) (ledger.Account, error) {
	acc, err := scanAccount(q.QueryRowContext(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET username = CASE WHEN EXCLUDED.username = '' THEN users.username ELSE EXCLUDED.username END,
		    last_active_at = now()
		RETURNING `+accountColumns,
		userID, username))
	if err != nil {
		return ledger.Account{}, fmt.Errorf("upsert user: %w", err)
	}

	return acc, nil
}

func (r *usersRepo) Get(ctx context.Context, q pgutils.DBTX, userID uint64) (ledger.Account, error) {
	acc, err := scanAccount(q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM users
		WHERE id = $1
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ledger.ErrUserNotFound
		}

		return ledger.Account{}, fmt.Errorf("get user: %w", err)
	}

	return acc, nil
}

func (r *usersRepo) Exists(ctx context.Context, q pgutils.DBTX, userID uint64) error {
	var exists bool

	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}

	if !exists {
		return ledger.ErrUserNotFound
	}

	return nil
}

func (r *usersRepo) GetBalance(ctx context.Context, q pgutils.DBTX, userID uint64) (money.Amount, error) {
	var balance money.Amount

	err := q.QueryRowContext(ctx, `
		SELECT balance
		FROM users
		WHERE id = $1
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ledger.ErrUserNotFound
		}

		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// AdjustBalance applies delta in a single guarded statement. When no row is updated it tells a
// missing user apart from an insufficient balance.
func (r *usersRepo) AdjustBalance(ctx context.Context, q pgutils.DBTX, userID uint64, delta money.Amount) (money.Amount, error) {
	var balance money.Amount

	err := q.QueryRowContext(ctx, `
		UPDATE users
		SET balance = balance + $2,
		    last_active_at = now()
		WHERE id = $1
		  AND balance + $2 >= 0
		RETURNING balance
	`, userID, int64(delta)).Scan(&balance)
	if err == nil {
		return balance, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		if pgutils.IsCheckViolation(err) {
			return 0, ledger.ErrInsufficientFunds
		}

		return 0, fmt.Errorf("adjust balance: %w", err)
	}

	err = r.Exists(ctx, q, userID)
	if err != nil {
		return 0, err
	}

	return 0, ledger.ErrInsufficientFunds
}

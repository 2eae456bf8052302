package repository

import (
	"context"
	"errors"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountRepository 可提領餘額，所有出帳 (退款、售票收入、轉售收入) 都記在這裡
type AccountRepository interface {
	Credit(ctx context.Context, holder model.Identity, amount model.Amount) error
	BalanceOf(ctx context.Context, holder model.Identity) (model.Amount, error)
}

type AccountRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &AccountRepositoryImpl{
		pool: pool,
	}
}

func (r *AccountRepositoryImpl) Credit(ctx context.Context, holder model.Identity, amount model.Amount) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO accounts (holder, balance)
		VALUES ($1, $2)
		ON CONFLICT (holder)
		DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, holder, amount)
	if isNumericOverflow(err) {
		return apperrors.ErrInvalidAmount
	}
	return err
}

func (r *AccountRepositoryImpl) BalanceOf(ctx context.Context, holder model.Identity) (model.Amount, error) {
	var balance model.Amount
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT balance FROM accounts WHERE holder = $1`, holder,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

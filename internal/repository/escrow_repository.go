package repository

import (
	"context"
	"errors"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EscrowRepository 以 (event_id, buyer) 為鍵的待退款累計金額
type EscrowRepository interface {
	Credit(ctx context.Context, eventID int64, buyer model.Identity, amount model.Amount) error
	Zero(ctx context.Context, eventID int64, buyer model.Identity) error
	SumFor(ctx context.Context, eventID int64) (model.Amount, error)
	RecordFor(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error)
	// ListByEvent 依首次入帳順序回傳，包含已歸零的紀錄
	ListByEvent(ctx context.Context, eventID int64) ([]*model.EscrowRecord, error)
}

type EscrowRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEscrowRepository(pool *pgxpool.Pool) EscrowRepository {
	return &EscrowRepositoryImpl{
		pool: pool,
	}
}

func (r *EscrowRepositoryImpl) Credit(ctx context.Context, eventID int64, buyer model.Identity, amount model.Amount) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO escrow_records (event_id, buyer, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, buyer)
		DO UPDATE SET amount = escrow_records.amount + EXCLUDED.amount, updated_at = NOW()
	`, eventID, buyer, amount)
	if isNumericOverflow(err) {
		return apperrors.ErrInvalidAmount
	}
	return err
}

func (r *EscrowRepositoryImpl) Zero(ctx context.Context, eventID int64, buyer model.Identity) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE escrow_records
		SET amount = 0, updated_at = NOW()
		WHERE event_id = $1 AND buyer = $2
	`, eventID, buyer)
	return err
}

func (r *EscrowRepositoryImpl) SumFor(ctx context.Context, eventID int64) (model.Amount, error) {
	var total model.Amount
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT FROM escrow_records WHERE event_id = $1`, eventID,
	).Scan(&total)
	return total, err
}

func (r *EscrowRepositoryImpl) RecordFor(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error) {
	var amount model.Amount
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT amount FROM escrow_records WHERE event_id = $1 AND buyer = $2`, eventID, buyer,
	).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (r *EscrowRepositoryImpl) ListByEvent(ctx context.Context, eventID int64) ([]*model.EscrowRecord, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT event_id, buyer, amount, updated_at
		FROM escrow_records
		WHERE event_id = $1
		ORDER BY seq
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*model.EscrowRecord, 0)
	for rows.Next() {
		var rec model.EscrowRecord
		if err := rows.Scan(&rec.EventID, &rec.Buyer, &rec.Amount, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

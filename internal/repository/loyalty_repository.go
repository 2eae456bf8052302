package repository

import (
	"context"
	"errors"

	"go-gin-ticket-ledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoyaltyRepository interface {
	// EnsureProfile 首次從該主辦方購票時建立 profile，已存在則不變
	EnsureProfile(ctx context.Context, fan, organizer model.Identity) error
	IncrementAttendance(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error)
	// FindProfile 不存在時回傳 attended_count 為 0 的 profile
	FindProfile(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error)
	SetGoldRequirement(ctx context.Context, organizer model.Identity, requirement int) error
	GoldRequirement(ctx context.Context, organizer model.Identity) (int, error)
}

type LoyaltyRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewLoyaltyRepository(pool *pgxpool.Pool) LoyaltyRepository {
	return &LoyaltyRepositoryImpl{
		pool: pool,
	}
}

func (r *LoyaltyRepositoryImpl) EnsureProfile(ctx context.Context, fan, organizer model.Identity) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO loyalty_profiles (fan, organizer)
		VALUES ($1, $2)
		ON CONFLICT (fan, organizer) DO NOTHING
	`, fan, organizer)
	return err
}

func (r *LoyaltyRepositoryImpl) IncrementAttendance(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error) {
	var p model.LoyaltyProfile
	err := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO loyalty_profiles (fan, organizer, attended_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (fan, organizer)
		DO UPDATE SET attended_count = loyalty_profiles.attended_count + 1, updated_at = NOW()
		RETURNING fan, organizer, attended_count, created_at, updated_at
	`, fan, organizer).Scan(&p.Fan, &p.Organizer, &p.AttendedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LoyaltyRepositoryImpl) FindProfile(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error) {
	p := model.LoyaltyProfile{Fan: fan, Organizer: organizer}
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT attended_count, created_at, updated_at
		FROM loyalty_profiles
		WHERE fan = $1 AND organizer = $2
	`, fan, organizer).Scan(&p.AttendedCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return &p, nil
}

func (r *LoyaltyRepositoryImpl) SetGoldRequirement(ctx context.Context, organizer model.Identity, requirement int) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO organizer_settings (organizer, gold_requirement)
		VALUES ($1, $2)
		ON CONFLICT (organizer)
		DO UPDATE SET gold_requirement = EXCLUDED.gold_requirement, updated_at = NOW()
	`, organizer, requirement)
	return err
}

func (r *LoyaltyRepositoryImpl) GoldRequirement(ctx context.Context, organizer model.Identity) (int, error) {
	var requirement int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT gold_requirement FROM organizer_settings WHERE organizer = $1`, organizer,
	).Scan(&requirement)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return requirement, err
}

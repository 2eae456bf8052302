package memory

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
)

type loyaltyRepository struct {
	s *Store
}

func (r *loyaltyRepository) EnsureProfile(ctx context.Context, fan, organizer model.Identity) error {
	return r.s.write(ctx, func(st *state) error {
		k := profileKey{fan, organizer}
		if _, ok := st.profiles[k]; !ok {
			now := r.s.now()
			st.profiles[k] = &model.LoyaltyProfile{Fan: fan, Organizer: organizer, CreatedAt: now, UpdatedAt: now}
		}
		return nil
	})
}

func (r *loyaltyRepository) IncrementAttendance(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error) {
	var out model.LoyaltyProfile
	err := r.s.write(ctx, func(st *state) error {
		now := r.s.now()
		k := profileKey{fan, organizer}
		p, ok := st.profiles[k]
		if !ok {
			p = &model.LoyaltyProfile{Fan: fan, Organizer: organizer, CreatedAt: now}
			st.profiles[k] = p
		}
		p.AttendedCount++
		p.UpdatedAt = now
		out = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loyaltyRepository) FindProfile(ctx context.Context, fan, organizer model.Identity) (*model.LoyaltyProfile, error) {
	if p, ok := r.s.read(ctx).profiles[profileKey{fan, organizer}]; ok {
		cp := *p
		return &cp, nil
	}
	return &model.LoyaltyProfile{Fan: fan, Organizer: organizer}, nil
}

func (r *loyaltyRepository) SetGoldRequirement(ctx context.Context, organizer model.Identity, requirement int) error {
	return r.s.write(ctx, func(st *state) error {
		st.goldReq[organizer] = requirement
		return nil
	})
}

func (r *loyaltyRepository) GoldRequirement(ctx context.Context, organizer model.Identity) (int, error) {
	return r.s.read(ctx).goldReq[organizer], nil
}

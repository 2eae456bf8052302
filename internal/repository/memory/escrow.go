package memory

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

type escrowRepository struct {
	s *Store
}

func (r *escrowRepository) Credit(ctx context.Context, eventID int64, buyer model.Identity, amount model.Amount) error {
	return r.s.write(ctx, func(st *state) error {
		now := r.s.now()
		for _, rec := range st.escrow[eventID] {
			if rec.Buyer == buyer {
				sum, ok := rec.Amount.Add(amount)
				if !ok {
					return apperrors.ErrInvalidAmount
				}
				rec.Amount = sum
				rec.UpdatedAt = now
				return nil
			}
		}
		st.escrow[eventID] = append(st.escrow[eventID], &model.EscrowRecord{
			EventID:   eventID,
			Buyer:     buyer,
			Amount:    amount,
			UpdatedAt: now,
		})
		return nil
	})
}

func (r *escrowRepository) Zero(ctx context.Context, eventID int64, buyer model.Identity) error {
	return r.s.write(ctx, func(st *state) error {
		for _, rec := range st.escrow[eventID] {
			if rec.Buyer == buyer {
				rec.Amount = 0
				rec.UpdatedAt = r.s.now()
			}
		}
		return nil
	})
}

func (r *escrowRepository) SumFor(ctx context.Context, eventID int64) (model.Amount, error) {
	var total model.Amount
	for _, rec := range r.s.read(ctx).escrow[eventID] {
		total += rec.Amount
	}
	return total, nil
}

func (r *escrowRepository) RecordFor(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error) {
	for _, rec := range r.s.read(ctx).escrow[eventID] {
		if rec.Buyer == buyer {
			return rec.Amount, nil
		}
	}
	return 0, nil
}

func (r *escrowRepository) ListByEvent(ctx context.Context, eventID int64) ([]*model.EscrowRecord, error) {
	records := r.s.read(ctx).escrow[eventID]
	out := make([]*model.EscrowRecord, len(records))
	for i, rec := range records {
		cp := *rec
		out[i] = &cp
	}
	return out, nil
}

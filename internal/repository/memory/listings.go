package memory

import (
	"context"
	"sort"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

type listingRepository struct {
	s *Store
}

func (r *listingRepository) Create(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	var out model.Listing
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.listings[listing.TicketID]; ok {
			return apperrors.ErrAlreadyListed
		}
		t, ok := st.tickets[listing.TicketID]
		if !ok {
			return apperrors.ErrTicketNotFound
		}
		st.listingSeq++
		l := *listing
		l.EventID = t.EventID
		l.Seq = st.listingSeq
		l.ListedAt = r.s.now()
		st.listings[l.TicketID] = &l
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *listingRepository) FindByTicketID(ctx context.Context, ticketID int64) (*model.Listing, error) {
	l, ok := r.s.read(ctx).listings[ticketID]
	if !ok {
		return nil, apperrors.ErrNotListed
	}
	cp := *l
	return &cp, nil
}

func (r *listingRepository) FindByTicketIDWithLock(ctx context.Context, ticketID int64) (*model.Listing, error) {
	return r.FindByTicketID(ctx, ticketID)
}

func (r *listingRepository) Delete(ctx context.Context, ticketID int64) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.listings[ticketID]; !ok {
			return apperrors.ErrNotListed
		}
		delete(st.listings, ticketID)
		return nil
	})
}

func (r *listingRepository) ListByEvent(ctx context.Context, eventID int64) ([]*model.Listing, error) {
	out := make([]*model.Listing, 0)
	for _, l := range r.s.read(ctx).listings {
		if l.EventID == eventID {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

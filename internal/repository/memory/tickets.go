package memory

import (
	"context"
	"sort"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

type ticketRepository struct {
	s *Store
}

func (r *ticketRepository) Mint(ctx context.Context, eventID int64, owner model.Identity) (*model.Ticket, error) {
	var out model.Ticket
	err := r.s.write(ctx, func(st *state) error {
		if _, ok := st.events[eventID]; !ok {
			return apperrors.ErrEventNotFound
		}
		now := r.s.now()
		t := &model.Ticket{
			ID:        st.nextTicketID,
			EventID:   eventID,
			Owner:     owner,
			MintedAt:  now,
			UpdatedAt: now,
		}
		st.nextTicketID++
		st.tickets[t.ID] = t
		out = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id int64) (*model.Ticket, error) {
	t, ok := r.s.read(ctx).tickets[id]
	if !ok {
		return nil, apperrors.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *ticketRepository) FindByIDWithLock(ctx context.Context, id int64) (*model.Ticket, error) {
	return r.FindByID(ctx, id)
}

func (r *ticketRepository) ListByOwner(ctx context.Context, owner model.Identity) ([]*model.Ticket, error) {
	return r.filter(ctx, func(t *model.Ticket) bool { return t.Owner == owner }), nil
}

func (r *ticketRepository) ListByEvent(ctx context.Context, eventID int64) ([]*model.Ticket, error) {
	return r.filter(ctx, func(t *model.Ticket) bool { return t.EventID == eventID }), nil
}

func (r *ticketRepository) filter(ctx context.Context, keep func(*model.Ticket) bool) []*model.Ticket {
	out := make([]*model.Ticket, 0)
	for _, t := range r.s.read(ctx).tickets {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ticketRepository) NextID(ctx context.Context) (int64, error) {
	return r.s.read(ctx).nextTicketID, nil
}

func (r *ticketRepository) UpdateOwner(ctx context.Context, id int64, owner model.Identity) error {
	return r.s.write(ctx, func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return apperrors.ErrTicketNotFound
		}
		t.Owner = owner
		t.Approved = ""
		t.UpdatedAt = r.s.now()
		return nil
	})
}

func (r *ticketRepository) UpdateApproval(ctx context.Context, id int64, approved model.Identity) error {
	return r.s.write(ctx, func(st *state) error {
		t, ok := st.tickets[id]
		if !ok {
			return apperrors.ErrTicketNotFound
		}
		t.Approved = approved
		t.UpdatedAt = r.s.now()
		return nil
	})
}

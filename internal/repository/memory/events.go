package memory

import (
	"context"
	"sort"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
)

type eventRepository struct {
	s *Store
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	var out model.Event
	err := r.s.write(ctx, func(st *state) error {
		now := r.s.now()
		e := *event
		e.ID = st.nextEventID
		e.TicketsSold = 0
		e.Cancelled = false
		e.CreatedAt = now
		e.UpdatedAt = now
		st.nextEventID++
		st.events[e.ID] = &e
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*model.Event, error) {
	st := r.s.read(ctx)
	events := make([]*model.Event, 0, len(st.events))
	for _, e := range st.events {
		ev := *e
		events = append(events, &ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *eventRepository) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	e, ok := r.s.read(ctx).events[id]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	ev := *e
	return &ev, nil
}

// FindByIDWithLock 寫入交易本身已序列化，這裡與 FindByID 相同
func (r *eventRepository) FindByIDWithLock(ctx context.Context, id int64) (*model.Event, error) {
	return r.FindByID(ctx, id)
}

func (r *eventRepository) NextID(ctx context.Context) (int64, error) {
	return r.s.read(ctx).nextEventID, nil
}

func (r *eventRepository) Update(ctx context.Context, id int64, params model.UpdateEventParams) (*model.Event, error) {
	if params.MetadataURI == nil && params.TicketPrice == nil {
		return nil, apperrors.ErrInvalidInput
	}
	var out model.Event
	err := r.s.write(ctx, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		if params.MetadataURI != nil {
			e.MetadataURI = *params.MetadataURI
		}
		if params.TicketPrice != nil {
			e.TicketPrice = *params.TicketPrice
		}
		e.UpdatedAt = r.s.now()
		out = *e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventRepository) IncrementTicketsSold(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		if e.TicketsSold >= e.MaxTickets {
			return apperrors.ErrEventSoldOut
		}
		e.TicketsSold++
		e.UpdatedAt = r.s.now()
		return nil
	})
}

func (r *eventRepository) MarkCancelled(ctx context.Context, id int64) error {
	return r.s.write(ctx, func(st *state) error {
		e, ok := st.events[id]
		if !ok {
			return apperrors.ErrEventNotFound
		}
		if e.Cancelled {
			return apperrors.ErrAlreadyCancelled
		}
		e.Cancelled = true
		e.UpdatedAt = r.s.now()
		return nil
	})
}

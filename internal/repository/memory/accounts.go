package memory

import (
	"context"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/google/uuid"
)

type accountRepository struct {
	s *Store
}

func (r *accountRepository) Credit(ctx context.Context, holder model.Identity, amount model.Amount) error {
	return r.s.write(ctx, func(st *state) error {
		balance, ok := st.accounts[holder].Add(amount)
		if !ok {
			return apperrors.ErrInvalidAmount
		}
		st.accounts[holder] = balance
		return nil
	})
}

func (r *accountRepository) BalanceOf(ctx context.Context, holder model.Identity) (model.Amount, error) {
	return r.s.read(ctx).accounts[holder], nil
}

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) Append(ctx context.Context, n *model.Notification) (bool, error) {
	var added bool
	err := r.s.write(ctx, func(st *state) error {
		if st.hasNotification(n.Key) {
			return nil
		}
		cp := *n
		cp.ID = int64(len(st.notifications)) + 1
		st.notifications = append(st.notifications, &cp)
		if st.pendingKeys == nil {
			st.pendingKeys = make(map[uuid.UUID]struct{})
		}
		st.pendingKeys[n.Key] = struct{}{}
		added = true
		return nil
	})
	return added, err
}

func (r *notificationRepository) ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error) {
	out := make([]*model.Notification, 0)
	for _, n := range r.s.read(ctx).notifications {
		if n.EventID == eventID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

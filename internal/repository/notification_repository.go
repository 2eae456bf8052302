package repository

import (
	"context"

	"go-gin-ticket-ledger/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository interface {
	// Append 以 Key 去重，重複投遞回傳 false
	Append(ctx context.Context, n *model.Notification) (bool, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error)
}

type NotificationRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &NotificationRepositoryImpl{
		pool: pool,
	}
}

func (r *NotificationRepositoryImpl) Append(ctx context.Context, n *model.Notification) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO ledger_notifications (
			key, type, event_id, ticket_id, actor, counterparty, amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (key) DO NOTHING
	`, n.Key, n.Type, n.EventID, n.TicketID, n.Actor, n.Counterparty, n.Amount, n.OccurredAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepositoryImpl) ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, key, type, event_id, ticket_id, actor, counterparty, amount, occurred_at
		FROM ledger_notifications
		WHERE event_id = $1
		ORDER BY id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Key, &n.Type, &n.EventID, &n.TicketID,
			&n.Actor, &n.Counterparty, &n.Amount, &n.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

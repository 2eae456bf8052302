package repository

import (
	"context"
	"errors"
	"fmt"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository interface {
	// Mint 分配新的 token id，須在交易中呼叫
	Mint(ctx context.Context, eventID int64, owner model.Identity) (*model.Ticket, error)
	FindByID(ctx context.Context, id int64) (*model.Ticket, error)
	ListByOwner(ctx context.Context, owner model.Identity) ([]*model.Ticket, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*model.Ticket, error)
	NextID(ctx context.Context) (int64, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, id int64) (*model.Ticket, error)
	// UpdateOwner 變更持有者並清除授權
	UpdateOwner(ctx context.Context, id int64, owner model.Identity) error
	UpdateApproval(ctx context.Context, id int64, approved model.Identity) error
}

type TicketRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &TicketRepositoryImpl{
		pool: pool,
	}
}

const ticketColumns = `id, event_id, owner, approved, minted_at, updated_at`

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.Owner,
		&ticket.Approved,
		&ticket.MintedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *TicketRepositoryImpl) Mint(ctx context.Context, eventID int64, owner model.Identity) (*model.Ticket, error) {
	q := conn(ctx, r.pool)

	id, err := nextCounter(ctx, q, "ticket")
	if err != nil {
		return nil, fmt.Errorf("allocate token id: %w", err)
	}

	return scanTicket(q.QueryRow(ctx, `
		INSERT INTO tickets (id, event_id, owner)
		VALUES ($1, $2, $3)
		RETURNING `+ticketColumns,
		id, eventID, owner,
	))
}

func (r *TicketRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Ticket, error) {
	return scanTicket(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
}

func (r *TicketRepositoryImpl) FindByIDWithLock(ctx context.Context, id int64) (*model.Ticket, error) {
	return scanTicket(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id))
}

func (r *TicketRepositoryImpl) ListByOwner(ctx context.Context, owner model.Identity) ([]*model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE owner = $1 ORDER BY id`, owner)
}

func (r *TicketRepositoryImpl) ListByEvent(ctx context.Context, eventID int64) ([]*model.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE event_id = $1 ORDER BY id`, eventID)
}

func (r *TicketRepositoryImpl) list(ctx context.Context, query string, args ...any) ([]*model.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]*model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

func (r *TicketRepositoryImpl) NextID(ctx context.Context) (int64, error) {
	return peekCounter(ctx, conn(ctx, r.pool), "ticket")
}

func (r *TicketRepositoryImpl) UpdateOwner(ctx context.Context, id int64, owner model.Identity) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE tickets
		SET owner = $2, approved = '', updated_at = NOW()
		WHERE id = $1
	`, id, owner)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepositoryImpl) UpdateApproval(ctx context.Context, id int64, approved model.Identity) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE tickets
		SET approved = $2, updated_at = NOW()
		WHERE id = $1
	`, id, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

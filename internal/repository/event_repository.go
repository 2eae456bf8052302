package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EventRepository interface {
	// Create 分配新的活動 id 並寫入，須在交易中呼叫
	Create(ctx context.Context, event *model.Event) (*model.Event, error)
	List(ctx context.Context) ([]*model.Event, error)
	FindByID(ctx context.Context, id int64) (*model.Event, error)
	NextID(ctx context.Context) (int64, error)
	Update(ctx context.Context, id int64, params model.UpdateEventParams) (*model.Event, error)

	// Transaction methods
	FindByIDWithLock(ctx context.Context, id int64) (*model.Event, error)
	IncrementTicketsSold(ctx context.Context, id int64) error
	MarkCancelled(ctx context.Context, id int64) error
}

type EventRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &EventRepositoryImpl{
		pool: pool,
	}
}

const eventColumns = `id, organizer, metadata_uri, ticket_price, max_tickets, tickets_sold,
	event_date, cancelled, gold_requirement, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var event model.Event
	err := row.Scan(
		&event.ID,
		&event.Organizer,
		&event.MetadataURI,
		&event.TicketPrice,
		&event.MaxTickets,
		&event.TicketsSold,
		&event.EventDate,
		&event.Cancelled,
		&event.GoldRequirement,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) Create(ctx context.Context, event *model.Event) (*model.Event, error) {
	q := conn(ctx, r.pool)

	id, err := nextCounter(ctx, q, "event")
	if err != nil {
		return nil, fmt.Errorf("allocate event id: %w", err)
	}

	query := `
		INSERT INTO events (
			id, organizer, metadata_uri, ticket_price, max_tickets,
			tickets_sold, event_date, cancelled, gold_requirement)
		VALUES ($1, $2, $3, $4, $5, 0, $6, FALSE, $7)
		RETURNING ` + eventColumns

	return scanEvent(q.QueryRow(ctx, query,
		id, event.Organizer, event.MetadataURI, event.TicketPrice,
		event.MaxTickets, event.EventDate, event.GoldRequirement,
	))
}

func (r *EventRepositoryImpl) List(ctx context.Context) ([]*model.Event, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*model.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	return scanEvent(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// FindByIDWithLock 鎖定活動列，同一活動的寫入在此序列化
func (r *EventRepositoryImpl) FindByIDWithLock(ctx context.Context, id int64) (*model.Event, error) {
	return scanEvent(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id))
}

func (r *EventRepositoryImpl) NextID(ctx context.Context) (int64, error) {
	return peekCounter(ctx, conn(ctx, r.pool), "event")
}

func (r *EventRepositoryImpl) Update(ctx context.Context, id int64, params model.UpdateEventParams) (*model.Event, error) {
	sets := []string{}
	args := []interface{}{}
	argPos := 1

	if params.MetadataURI != nil {
		sets = append(sets, fmt.Sprintf("metadata_uri = $%d", argPos))
		args = append(args, *params.MetadataURI)
		argPos++
	}

	if params.TicketPrice != nil {
		sets = append(sets, fmt.Sprintf("ticket_price = $%d", argPos))
		args = append(args, *params.TicketPrice)
		argPos++
	}

	if len(sets) == 0 {
		return nil, apperrors.ErrInvalidInput
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), argPos, eventColumns)

	return scanEvent(conn(ctx, r.pool).QueryRow(ctx, query, args...))
}

// IncrementTicketsSold 以條件更新保證 tickets_sold 不超過 max_tickets
func (r *EventRepositoryImpl) IncrementTicketsSold(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events
		SET tickets_sold = tickets_sold + 1, updated_at = NOW()
		WHERE id = $1 AND tickets_sold < max_tickets
	`, id)
	if err != nil {
		if isCheckViolation(err) {
			return apperrors.ErrEventSoldOut
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrEventSoldOut
	}
	return nil
}

func (r *EventRepositoryImpl) MarkCancelled(ctx context.Context, id int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE events
		SET cancelled = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT cancelled
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return apperrors.ErrAlreadyCancelled
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"go-gin-ticket-ledger/internal/model"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ListingRepository interface {
	// Create 同一張票已有掛單時回傳 ErrAlreadyListed
	Create(ctx context.Context, listing *model.Listing) (*model.Listing, error)
	FindByTicketID(ctx context.Context, ticketID int64) (*model.Listing, error)
	Delete(ctx context.Context, ticketID int64) error
	// ListByEvent 依掛單先後排序
	ListByEvent(ctx context.Context, eventID int64) ([]*model.Listing, error)

	// Transaction methods
	FindByTicketIDWithLock(ctx context.Context, ticketID int64) (*model.Listing, error)
}

type ListingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &ListingRepositoryImpl{
		pool: pool,
	}
}

const listingSelect = `
	SELECT l.ticket_id, t.event_id, l.seller, l.ask_price, l.seq, l.listed_at
	FROM listings l
	JOIN tickets t ON t.id = l.ticket_id`

func scanListing(row pgx.Row) (*model.Listing, error) {
	var listing model.Listing
	err := row.Scan(
		&listing.TicketID,
		&listing.EventID,
		&listing.Seller,
		&listing.AskPrice,
		&listing.Seq,
		&listing.ListedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotListed
		}
		return nil, err
	}
	return &listing, nil
}

func (r *ListingRepositoryImpl) Create(ctx context.Context, listing *model.Listing) (*model.Listing, error) {
	q := conn(ctx, r.pool)
	err := q.QueryRow(ctx, `
		INSERT INTO listings (ticket_id, seller, ask_price)
		VALUES ($1, $2, $3)
		RETURNING seq, listed_at
	`, listing.TicketID, listing.Seller, listing.AskPrice).Scan(&listing.Seq, &listing.ListedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.ErrAlreadyListed
		}
		return nil, err
	}
	if err := q.QueryRow(ctx, `SELECT event_id FROM tickets WHERE id = $1`, listing.TicketID).Scan(&listing.EventID); err != nil {
		return nil, err
	}
	return listing, nil
}

func (r *ListingRepositoryImpl) FindByTicketID(ctx context.Context, ticketID int64) (*model.Listing, error) {
	return scanListing(conn(ctx, r.pool).QueryRow(ctx, listingSelect+` WHERE l.ticket_id = $1`, ticketID))
}

func (r *ListingRepositoryImpl) FindByTicketIDWithLock(ctx context.Context, ticketID int64) (*model.Listing, error) {
	return scanListing(conn(ctx, r.pool).QueryRow(ctx,
		listingSelect+` WHERE l.ticket_id = $1 FOR UPDATE OF l`, ticketID))
}

func (r *ListingRepositoryImpl) Delete(ctx context.Context, ticketID int64) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM listings WHERE ticket_id = $1`, ticketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotListed
	}
	return nil
}

func (r *ListingRepositoryImpl) ListByEvent(ctx context.Context, eventID int64) ([]*model.Listing, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listingSelect+` WHERE t.event_id = $1 ORDER BY l.seq`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]*model.Listing, 0)
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

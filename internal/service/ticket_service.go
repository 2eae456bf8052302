package service

import (
	"context"
	"errors"

	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"
	"go-gin-ticket-ledger/pkg/logger"

	"go.uber.org/zap"
)

type TicketService interface {
	OwnerOf(ctx context.Context, ticketID int64) (model.Identity, error)
	TokenToEvent(ctx context.Context, ticketID int64) (int64, error)
	// TokenURI 回傳綁定活動的 metadata URI
	TokenURI(ctx context.Context, ticketID int64) (string, error)
	GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error)
	TicketsOf(ctx context.Context, owner model.Identity) ([]*model.Ticket, error)
	NextTokenID(ctx context.Context) (int64, error)
	// Transfer 持有者直接轉移，同時移除掛單並清除授權
	Transfer(ctx context.Context, ticketID int64, from, to model.Identity) error
	// Approve 授權 delegate 代為轉移一次；delegate 為空時撤銷授權
	Approve(ctx context.Context, ticketID int64, owner, delegate model.Identity) error
}

type TicketServiceImpl struct {
	repos *repository.Repositories
	log   *zap.Logger
}

func NewTicketService(repos *repository.Repositories) *TicketServiceImpl {
	return &TicketServiceImpl{
		repos: repos,
		log:   logger.WithComponent("ticket_service"),
	}
}

func (s *TicketServiceImpl) OwnerOf(ctx context.Context, ticketID int64) (model.Identity, error) {
	ticket, err := s.repos.Tickets.FindByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	return ticket.Owner, nil
}

func (s *TicketServiceImpl) TokenToEvent(ctx context.Context, ticketID int64) (int64, error) {
	ticket, err := s.repos.Tickets.FindByID(ctx, ticketID)
	if err != nil {
		return 0, err
	}
	return ticket.EventID, nil
}

func (s *TicketServiceImpl) TokenURI(ctx context.Context, ticketID int64) (string, error) {
	ticket, err := s.repos.Tickets.FindByID(ctx, ticketID)
	if err != nil {
		return "", err
	}
	event, err := s.repos.Events.FindByID(ctx, ticket.EventID)
	if err != nil {
		return "", err
	}
	return event.MetadataURI, nil
}

func (s *TicketServiceImpl) GetTicket(ctx context.Context, ticketID int64) (*model.Ticket, error) {
	return s.repos.Tickets.FindByID(ctx, ticketID)
}

func (s *TicketServiceImpl) TicketsOf(ctx context.Context, owner model.Identity) ([]*model.Ticket, error) {
	if owner.IsZero() {
		return nil, apperrors.ErrInvalidIdentity
	}
	return s.repos.Tickets.ListByOwner(ctx, owner)
}

func (s *TicketServiceImpl) NextTokenID(ctx context.Context) (int64, error) {
	return s.repos.Tickets.NextID(ctx)
}

func (s *TicketServiceImpl) Transfer(ctx context.Context, ticketID int64, from, to model.Identity) error {
	if to.IsZero() {
		return apperrors.ErrInvalidIdentity
	}

	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		ticket, err := s.repos.Tickets.FindByIDWithLock(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Owner != from {
			return apperrors.ErrNotTicketOwner
		}
		// 舊持有者的掛單隨轉移失效
		if err := s.repos.Listings.Delete(ctx, ticketID); err != nil && !errors.Is(err, apperrors.ErrNotListed) {
			return err
		}
		return s.repos.Tickets.UpdateOwner(ctx, ticketID, to)
	})
	if err != nil {
		return err
	}

	s.log.Info("ticket transferred",
		zap.Int64("ticket_id", ticketID),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	return nil
}

func (s *TicketServiceImpl) Approve(ctx context.Context, ticketID int64, owner, delegate model.Identity) error {
	if delegate == owner {
		return apperrors.ErrInvalidIdentity
	}
	return s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		ticket, err := s.repos.Tickets.FindByIDWithLock(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Owner != owner {
			return apperrors.ErrNotTicketOwner
		}
		// 掛單期間授權屬於市集，須先取消掛單
		if _, err := s.repos.Listings.FindByTicketID(ctx, ticketID); err == nil {
			return apperrors.ErrAlreadyListed
		} else if !errors.Is(err, apperrors.ErrNotListed) {
			return err
		}
		return s.repos.Tickets.UpdateApproval(ctx, ticketID, delegate)
	})
}

// mint 僅供 EventService 在購票交易中呼叫
func (s *TicketServiceImpl) mint(ctx context.Context, eventID int64, owner model.Identity) (*model.Ticket, error) {
	return s.repos.Tickets.Mint(ctx, eventID, owner)
}

// transferFrom operator 代持有者轉移，非持有者時消耗一次性授權。須在呼叫端交易中執行。
func (s *TicketServiceImpl) transferFrom(ctx context.Context, operator model.Identity, ticketID int64, from, to model.Identity) error {
	ticket, err := s.repos.Tickets.FindByIDWithLock(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Owner != from {
		return apperrors.ErrNotTicketOwner
	}
	if operator != from && !ticket.IsApproved(operator) {
		return apperrors.ErrNotApproved
	}
	// UpdateOwner 同時清除授權
	return s.repos.Tickets.UpdateOwner(ctx, ticketID, to)
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go-gin-ticket-ledger/internal/metrics"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"go.uber.org/zap"
)

// MarketplaceService 二級市場：不經託管，買家付款直接給賣家
type MarketplaceService interface {
	// ListTicket 掛單同時授權市集代為轉移一次
	ListTicket(ctx context.Context, ticketID int64, seller model.Identity, askPrice model.Amount) (*model.Listing, error)
	BuyTicket(ctx context.Context, ticketID int64, buyer model.Identity, amountPaid model.Amount) (*model.Resale, error)
	CancelListing(ctx context.Context, ticketID int64, seller model.Identity) error
	GetListing(ctx context.Context, ticketID int64) (*model.Listing, error)
	// GetListingsByEvent 依掛單先後回傳 ticket id
	GetListingsByEvent(ctx context.Context, eventID int64) ([]int64, error)
}

type MarketplaceServiceImpl struct {
	repos    *repository.Repositories
	tickets  *TicketServiceImpl
	payer    Payer
	notifier *notifier
	log      *zap.Logger
}

func (s *MarketplaceServiceImpl) ListTicket(ctx context.Context, ticketID int64, seller model.Identity, askPrice model.Amount) (*model.Listing, error) {
	if askPrice <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	var listing *model.Listing
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		ticket, err := s.repos.Tickets.FindByIDWithLock(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Owner != seller {
			return apperrors.ErrNotTicketOwner
		}
		listing, err = s.repos.Listings.Create(ctx, &model.Listing{
			TicketID: ticketID,
			Seller:   seller,
			AskPrice: askPrice,
		})
		if err != nil {
			return err
		}
		return s.repos.Tickets.UpdateApproval(ctx, ticketID, model.MarketplaceOperator)
	})
	if err != nil {
		metrics.Rejected("list_ticket", apperrors.CodeOf(err))
		return nil, err
	}

	s.notifier.publish(ctx, s.notifier.build(model.NotificationTicketListed, listing.EventID,
		ticketRef(ticketID), seller, "", askPrice))
	s.log.Info("ticket listed",
		zap.Int64("ticket_id", ticketID),
		zap.String("seller", seller.String()),
		zap.Int64("ask_price", int64(askPrice)))
	return listing, nil
}

func (s *MarketplaceServiceImpl) BuyTicket(ctx context.Context, ticketID int64, buyer model.Identity, amountPaid model.Amount) (*model.Resale, error) {
	if buyer.IsZero() {
		return nil, apperrors.ErrInvalidIdentity
	}

	var resale *model.Resale
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		listing, err := s.lockListing(ctx, ticketID)
		if err != nil {
			return err
		}
		if amountPaid != listing.AskPrice {
			return apperrors.ErrIncorrectPayment
		}
		if buyer == listing.Seller {
			return apperrors.ErrCannotBuyOwnListing
		}

		if err := s.payer.Pay(ctx, listing.Seller, amountPaid); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrPaymentFailed, err)
		}
		if err := s.tickets.transferFrom(ctx, model.MarketplaceOperator, ticketID, listing.Seller, buyer); err != nil {
			return fmt.Errorf("transfer ticket: %w", err)
		}
		if err := s.repos.Listings.Delete(ctx, ticketID); err != nil {
			return err
		}

		resale = &model.Resale{
			TicketID: ticketID,
			EventID:  listing.EventID,
			Seller:   listing.Seller,
			Buyer:    buyer,
			Price:    amountPaid,
		}
		return nil
	})
	if err != nil {
		metrics.Rejected("resale", apperrors.CodeOf(err))
		return nil, err
	}

	metrics.Resale()
	s.notifier.publish(ctx, s.notifier.build(model.NotificationTicketResold, resale.EventID,
		ticketRef(ticketID), buyer, resale.Seller, resale.Price))
	s.log.Info("ticket resold",
		zap.Int64("ticket_id", ticketID),
		zap.String("seller", resale.Seller.String()),
		zap.String("buyer", buyer.String()),
		zap.Int64("price", int64(resale.Price)))
	return resale, nil
}

func (s *MarketplaceServiceImpl) CancelListing(ctx context.Context, ticketID int64, seller model.Identity) error {
	var eventID int64
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		listing, err := s.lockListing(ctx, ticketID)
		if err != nil {
			return err
		}
		if listing.Seller != seller {
			return apperrors.ErrNotTicketOwner
		}
		if err := s.repos.Listings.Delete(ctx, ticketID); err != nil {
			return err
		}
		eventID = listing.EventID

		ticket, err := s.repos.Tickets.FindByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if ticket.IsApproved(model.MarketplaceOperator) {
			return s.repos.Tickets.UpdateApproval(ctx, ticketID, "")
		}
		return nil
	})
	if err != nil {
		metrics.Rejected("cancel_listing", apperrors.CodeOf(err))
		return err
	}

	s.notifier.publish(ctx, s.notifier.build(model.NotificationListingCancelled, eventID,
		ticketRef(ticketID), seller, "", 0))
	s.log.Info("listing cancelled", zap.Int64("ticket_id", ticketID))
	return nil
}

// lockListing 先鎖票券列再鎖掛單列，與 ListTicket / Transfer 的加鎖順序一致
func (s *MarketplaceServiceImpl) lockListing(ctx context.Context, ticketID int64) (*model.Listing, error) {
	if _, err := s.repos.Tickets.FindByIDWithLock(ctx, ticketID); err != nil {
		if errors.Is(err, apperrors.ErrTicketNotFound) {
			return nil, apperrors.ErrNotListed
		}
		return nil, err
	}
	return s.repos.Listings.FindByTicketIDWithLock(ctx, ticketID)
}

func (s *MarketplaceServiceImpl) GetListing(ctx context.Context, ticketID int64) (*model.Listing, error) {
	return s.repos.Listings.FindByTicketID(ctx, ticketID)
}

func (s *MarketplaceServiceImpl) GetListingsByEvent(ctx context.Context, eventID int64) ([]int64, error) {
	listings, err := s.repos.Listings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(listings))
	for _, l := range listings {
		ids = append(ids, l.TicketID)
	}
	return ids, nil
}

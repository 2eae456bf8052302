package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go-gin-ticket-ledger/internal/cache"
	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/metrics"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/repository"
	apperrors "go-gin-ticket-ledger/pkg/app_errors"

	"go.uber.org/zap"
)

type EventService interface {
	CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.Event, error)
	// BuyTicket 一級市場購票：加總售出數、記入託管、鑄造票券，三者同一交易
	BuyTicket(ctx context.Context, eventID int64, buyer model.Identity, amountPaid model.Amount) (*model.Ticket, error)
	UpdateEventMetadataURI(ctx context.Context, eventID int64, caller model.Identity, metadataURI string) (*model.Event, error)
	UpdateTicketPrice(ctx context.Context, eventID int64, caller model.Identity, price model.Amount) (*model.Event, error)
	// CancelEvent 退還每位買家的託管金額後標記取消；任何一筆退款失敗則整體不生效
	CancelEvent(ctx context.Context, eventID int64, caller model.Identity, refundPool model.Amount) (*model.CancellationReceipt, error)
	TotalReceived(ctx context.Context, eventID int64) (model.Amount, error)

	GetEvent(ctx context.Context, eventID int64) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	NextEventID(ctx context.Context) (int64, error)
	EventBuyers(ctx context.Context, eventID int64) ([]model.Identity, error)
	Payment(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error)

	// WarmUpInventory 將所有可售活動的剩餘票數載入售完閘門
	WarmUpInventory(ctx context.Context) error
}

type EventServiceImpl struct {
	repos     *repository.Repositories
	escrow    EscrowLedger
	tickets   *TicketServiceImpl
	loyalty   *LoyaltyServiceImpl
	payer     Payer
	inventory cache.EventInventoryManager
	notifier  *notifier
	clock     clock.Clock
	log       *zap.Logger
}

func (s *EventServiceImpl) CreateEvent(ctx context.Context, params model.CreateEventParams) (*model.Event, error) {
	if !params.Validate(s.clock.Now()) {
		s.reject("create_event", apperrors.ErrInvalidEventParameters)
		return nil, apperrors.ErrInvalidEventParameters
	}

	var event *model.Event
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		requirement := 0
		if params.GoldRequirement != nil {
			requirement = *params.GoldRequirement
		} else {
			// 未指定時快照主辦方目前的設定
			r, err := s.loyalty.GoldRequirement(ctx, params.Organizer)
			if err != nil {
				return err
			}
			requirement = r
		}

		created, err := s.repos.Events.Create(ctx, &model.Event{
			Organizer:       params.Organizer,
			MetadataURI:     params.MetadataURI,
			TicketPrice:     params.TicketPrice,
			MaxTickets:      params.MaxTickets,
			EventDate:       params.EventDate.UTC(),
			GoldRequirement: requirement,
		})
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		event = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.inventory != nil {
		if err := s.inventory.WarmUpInventory(ctx, event.ID, event.MaxTickets); err != nil {
			s.log.Warn("warm up inventory failed", zap.Int64("event_id", event.ID), zap.Error(err))
		}
	}

	metrics.EventCreated()
	s.notifier.publish(ctx, s.notifier.build(model.NotificationEventCreated, event.ID, nil,
		event.Organizer, "", event.TicketPrice))
	s.log.Info("event created",
		zap.Int64("event_id", event.ID),
		zap.String("organizer", event.Organizer.String()),
		zap.Int64("ticket_price", int64(event.TicketPrice)),
		zap.Int("max_tickets", event.MaxTickets))
	return event, nil
}

func (s *EventServiceImpl) BuyTicket(ctx context.Context, eventID int64, buyer model.Identity, amountPaid model.Amount) (*model.Ticket, error) {
	if buyer.IsZero() {
		return nil, apperrors.ErrInvalidIdentity
	}

	// 1. 不加鎖的前置檢查，順序與鎖內相同；金額錯誤的請求不會佔用閘門名額
	event, err := s.repos.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := checkBuyable(event, buyer, amountPaid); err != nil {
		s.reject("buy_ticket", err)
		return nil, err
	}

	// 2. Redis 售完閘門只是建議：閘門說售完時以資料庫為準
	reserved := false
	if s.inventory != nil {
		switch err := s.inventory.Reserve(ctx, eventID); {
		case err == nil:
			reserved = true
		case errors.Is(err, apperrors.ErrEventSoldOut):
			current, err := s.repos.Events.FindByID(ctx, eventID)
			if err != nil {
				return nil, err
			}
			if current.IsSoldOut() {
				s.reject("buy_ticket", apperrors.ErrEventSoldOut)
				return nil, apperrors.ErrEventSoldOut
			}
			// 其他請求仍持有預留，交給鎖內判斷
			s.log.Debug("inventory gate reports sold out, ledger has seats",
				zap.Int64("event_id", eventID),
				zap.Int("tickets_sold", current.TicketsSold),
				zap.Int("max_tickets", current.MaxTickets))
		case errors.Is(err, cache.ErrNotWarmed):
		default:
			s.log.Warn("inventory gate unavailable", zap.Int64("event_id", eventID), zap.Error(err))
		}
	}

	// 3. 鎖定活動列，售出數 / 託管 / 鑄造 / 付款同一交易
	var ticket *model.Ticket
	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.repos.Events.FindByIDWithLock(ctx, eventID)
		if err != nil {
			return err
		}
		if err := checkBuyable(event, buyer, amountPaid); err != nil {
			return err
		}

		if err := s.repos.Events.IncrementTicketsSold(ctx, eventID); err != nil {
			return err
		}
		if err := s.escrow.Credit(ctx, eventID, buyer, amountPaid); err != nil {
			return fmt.Errorf("credit escrow: %w", err)
		}
		minted, err := s.tickets.mint(ctx, eventID, buyer)
		if err != nil {
			return fmt.Errorf("mint ticket: %w", err)
		}
		if err := s.loyalty.ensureProfile(ctx, buyer, event.Organizer); err != nil {
			return fmt.Errorf("ensure loyalty profile: %w", err)
		}
		// 售票收入即時付給主辦方，託管紀錄保留取消時的退款責任
		if err := s.payer.Pay(ctx, event.Organizer, amountPaid); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrPaymentFailed, err)
		}
		ticket = minted
		return nil
	})
	if err != nil {
		if reserved {
			// 交易失敗一定要歸還預留，不跟隨請求 ctx
			if relErr := s.inventory.Release(context.Background(), eventID); relErr != nil {
				s.log.Warn("release inventory failed", zap.Int64("event_id", eventID), zap.Error(relErr))
			}
		}
		s.reject("buy_ticket", err)
		return nil, err
	}

	metrics.TicketSold()
	s.notifier.publish(ctx, s.notifier.build(model.NotificationTicketPurchased, eventID,
		ticketRef(ticket.ID), buyer, event.Organizer, amountPaid))
	s.log.Info("ticket purchased",
		zap.Int64("event_id", eventID),
		zap.Int64("ticket_id", ticket.ID),
		zap.String("buyer", buyer.String()))
	return ticket, nil
}

func checkBuyable(event *model.Event, buyer model.Identity, amountPaid model.Amount) error {
	if event.Cancelled {
		return apperrors.ErrEventCancelled
	}
	if buyer == event.Organizer {
		return apperrors.ErrNotAllowedToBuyOwnTicket
	}
	if event.IsSoldOut() {
		return apperrors.ErrEventSoldOut
	}
	if amountPaid != event.TicketPrice {
		return apperrors.ErrIncorrectPayment
	}
	return nil
}

func (s *EventServiceImpl) UpdateEventMetadataURI(ctx context.Context, eventID int64, caller model.Identity, metadataURI string) (*model.Event, error) {
	return s.update(ctx, eventID, caller, model.UpdateEventParams{MetadataURI: &metadataURI})
}

func (s *EventServiceImpl) UpdateTicketPrice(ctx context.Context, eventID int64, caller model.Identity, price model.Amount) (*model.Event, error) {
	if price <= 0 {
		return nil, apperrors.ErrInvalidEventParameters
	}
	return s.update(ctx, eventID, caller, model.UpdateEventParams{TicketPrice: &price})
}

func (s *EventServiceImpl) update(ctx context.Context, eventID int64, caller model.Identity, params model.UpdateEventParams) (*model.Event, error) {
	var updated *model.Event
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.repos.Events.FindByIDWithLock(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Organizer != caller {
			return apperrors.ErrNotOrganizer
		}
		if event.Cancelled {
			return apperrors.ErrEventCancelled
		}
		// 售完後票價鎖定
		if params.TicketPrice != nil && event.IsSoldOut() {
			return apperrors.ErrEventSoldOut
		}
		if params.TicketPrice != nil && !model.TotalFits(*params.TicketPrice, event.MaxTickets) {
			return apperrors.ErrInvalidEventParameters
		}
		updated, err = s.repos.Events.Update(ctx, eventID, params)
		return err
	})
	if err != nil {
		s.reject("update_event", err)
		return nil, err
	}

	s.notifier.publish(ctx, s.notifier.build(model.NotificationEventUpdated, eventID, nil,
		caller, "", updated.TicketPrice))
	s.log.Info("event updated",
		zap.Int64("event_id", eventID),
		zap.Bool("metadata", params.MetadataURI != nil),
		zap.Bool("price", params.TicketPrice != nil))
	return updated, nil
}

func (s *EventServiceImpl) CancelEvent(ctx context.Context, eventID int64, caller model.Identity, refundPool model.Amount) (*model.CancellationReceipt, error) {
	if refundPool < 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	receipt := &model.CancellationReceipt{EventID: eventID, RefundPool: refundPool, Refunds: []model.Refund{}}
	var organizer model.Identity
	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.repos.Events.FindByIDWithLock(ctx, eventID)
		if err != nil {
			return err
		}
		if event.Organizer != caller {
			return apperrors.ErrNotOrganizer
		}
		if event.Cancelled {
			return apperrors.ErrAlreadyCancelled
		}
		organizer = event.Organizer

		total, err := s.escrow.SumFor(ctx, eventID)
		if err != nil {
			return err
		}
		if refundPool < total {
			return apperrors.ErrInsufficientRefund
		}

		records, err := s.escrow.Records(ctx, eventID)
		if err != nil {
			return err
		}
		payouts := make(map[model.Identity]model.Amount, len(records)+1)
		for _, rec := range records {
			if rec.Amount == 0 {
				continue
			}
			if err := s.escrow.Zero(ctx, eventID, rec.Buyer); err != nil {
				return err
			}
			payouts[rec.Buyer] = rec.Amount
			receipt.Refunds = append(receipt.Refunds, model.Refund{Buyer: rec.Buyer, Amount: rec.Amount})
			receipt.TotalRefunded += rec.Amount
		}
		receipt.Surplus = refundPool - receipt.TotalRefunded
		if receipt.Surplus > 0 {
			payouts[organizer] += receipt.Surplus
		}

		// 依身份排序出帳，並行的取消以相同順序鎖定帳戶列
		for _, holder := range payoutOrder(payouts) {
			if err := s.payer.Pay(ctx, holder, payouts[holder]); err != nil {
				return fmt.Errorf("%w: %s: %v", apperrors.ErrRefundTransferFailed, holder, err)
			}
		}

		return s.repos.Events.MarkCancelled(ctx, eventID)
	})
	if err != nil {
		s.reject("cancel_event", err)
		return nil, err
	}

	if s.inventory != nil {
		if err := s.inventory.Evict(ctx, eventID); err != nil {
			s.log.Warn("evict inventory failed", zap.Int64("event_id", eventID), zap.Error(err))
		}
	}

	metrics.EventCancelled()
	for _, r := range receipt.Refunds {
		metrics.RefundPaid(int64(r.Amount))
	}
	s.notifier.publish(ctx, s.notifier.build(model.NotificationEventCancelled, eventID, nil,
		organizer, "", receipt.TotalRefunded))
	s.log.Info("event cancelled",
		zap.Int64("event_id", eventID),
		zap.Int("refunds", len(receipt.Refunds)),
		zap.Int64("total_refunded", int64(receipt.TotalRefunded)),
		zap.Int64("surplus", int64(receipt.Surplus)))
	return receipt, nil
}

func payoutOrder(payouts map[model.Identity]model.Amount) []model.Identity {
	holders := make([]model.Identity, 0, len(payouts))
	for holder := range payouts {
		holders = append(holders, holder)
	}
	slices.Sort(holders)
	return holders
}

func (s *EventServiceImpl) TotalReceived(ctx context.Context, eventID int64) (model.Amount, error) {
	if _, err := s.repos.Events.FindByID(ctx, eventID); err != nil {
		return 0, err
	}
	return s.escrow.SumFor(ctx, eventID)
}

func (s *EventServiceImpl) GetEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	return s.repos.Events.FindByID(ctx, eventID)
}

func (s *EventServiceImpl) ListEvents(ctx context.Context) ([]*model.Event, error) {
	return s.repos.Events.List(ctx)
}

func (s *EventServiceImpl) NextEventID(ctx context.Context) (int64, error) {
	return s.repos.Events.NextID(ctx)
}

func (s *EventServiceImpl) EventBuyers(ctx context.Context, eventID int64) ([]model.Identity, error) {
	if _, err := s.repos.Events.FindByID(ctx, eventID); err != nil {
		return nil, err
	}
	records, err := s.escrow.Records(ctx, eventID)
	if err != nil {
		return nil, err
	}
	buyers := make([]model.Identity, 0, len(records))
	for _, rec := range records {
		buyers = append(buyers, rec.Buyer)
	}
	return buyers, nil
}

func (s *EventServiceImpl) Payment(ctx context.Context, eventID int64, buyer model.Identity) (model.Amount, error) {
	if _, err := s.repos.Events.FindByID(ctx, eventID); err != nil {
		return 0, err
	}
	return s.escrow.RecordFor(ctx, eventID, buyer)
}

func (s *EventServiceImpl) WarmUpInventory(ctx context.Context) error {
	if s.inventory == nil {
		return nil
	}
	events, err := s.repos.Events.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range events {
		if e.Cancelled {
			if err := s.inventory.Evict(ctx, e.ID); err != nil {
				return err
			}
			continue
		}
		if err := s.inventory.WarmUpInventory(ctx, e.ID, e.RemainingTickets()); err != nil {
			return err
		}
	}
	s.log.Info("inventory warmed up", zap.Int("events", len(events)))
	return nil
}

func (s *EventServiceImpl) reject(operation string, err error) {
	metrics.Rejected(operation, apperrors.CodeOf(err))
}

package service

import (
	"go-gin-ticket-ledger/internal/cache"
	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/queue"
	"go-gin-ticket-ledger/internal/repository"
	"go-gin-ticket-ledger/pkg/logger"
)

// LedgerDeps Payer / Inventory / Queue 可為 nil：
// Payer 預設記入帳本餘額，Inventory 為 nil 時不使用售完閘門，Queue 為 nil 時不發布通知。
type LedgerDeps struct {
	Repos     *repository.Repositories
	Payer     Payer
	Inventory cache.EventInventoryManager
	Queue     queue.NotificationQueue
	Clock     clock.Clock
}

// Ledger 帳本各元件，共用同一組 repository 與交易管理
type Ledger struct {
	Events        EventService
	Escrow        EscrowLedger
	Tickets       TicketService
	Marketplace   MarketplaceService
	Loyalty       LoyaltyService
	Accounts      AccountService
	Notifications NotificationService
}

func NewLedger(deps LedgerDeps) *Ledger {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	payer := deps.Payer
	if payer == nil {
		payer = NewAccountPayer(deps.Repos.Accounts)
	}

	n := newNotifier(deps.Queue, clk)
	escrow := NewEscrowLedger(deps.Repos.Escrow)
	tickets := NewTicketService(deps.Repos)
	loyalty := NewLoyaltyService(deps.Repos)

	events := &EventServiceImpl{
		repos:     deps.Repos,
		escrow:    escrow,
		tickets:   tickets,
		loyalty:   loyalty,
		payer:     payer,
		inventory: deps.Inventory,
		notifier:  n,
		clock:     clk,
		log:       logger.WithComponent("event_service"),
	}
	marketplace := &MarketplaceServiceImpl{
		repos:    deps.Repos,
		tickets:  tickets,
		payer:    payer,
		notifier: n,
		log:      logger.WithComponent("marketplace_service"),
	}

	return &Ledger{
		Events:        events,
		Escrow:        escrow,
		Tickets:       tickets,
		Marketplace:   marketplace,
		Loyalty:       loyalty,
		Accounts:      NewAccountService(deps.Repos.Accounts),
		Notifications: NewNotificationService(deps.Repos.Notifications),
	}
}

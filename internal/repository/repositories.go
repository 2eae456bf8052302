package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories 帳本所有 repository 與交易管理，由 Postgres 或 memory 後端提供
type Repositories struct {
	Tx            TxManager
	Events        EventRepository
	Escrow        EscrowRepository
	Tickets       TicketRepository
	Listings      ListingRepository
	Loyalty       LoyaltyRepository
	Accounts      AccountRepository
	Notifications NotificationRepository
}

func NewPostgresRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Tx:            NewTxManager(pool),
		Events:        NewEventRepository(pool),
		Escrow:        NewEscrowRepository(pool),
		Tickets:       NewTicketRepository(pool),
		Listings:      NewListingRepository(pool),
		Loyalty:       NewLoyaltyRepository(pool),
		Accounts:      NewAccountRepository(pool),
		Notifications: NewNotificationRepository(pool),
	}
}

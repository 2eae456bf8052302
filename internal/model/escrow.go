package model

import "time"

// EscrowRecord 某買家在某活動尚未退還的累計付款
type EscrowRecord struct {
	EventID   int64     `json:"event_id" db:"event_id"`
	Buyer     Identity  `json:"buyer" db:"buyer"`
	Amount    Amount    `json:"amount" db:"amount"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

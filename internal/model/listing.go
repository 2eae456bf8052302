package model

import "time"

// Listing 二級市場掛單，以 ticket id 為識別 (每張票最多一筆)
type Listing struct {
	TicketID int64     `json:"ticket_id" db:"ticket_id"`
	EventID  int64     `json:"event_id" db:"-"`
	Seller   Identity  `json:"seller" db:"seller"`
	AskPrice Amount    `json:"ask_price" db:"ask_price"`
	Seq      int64     `json:"-" db:"seq"`
	ListedAt time.Time `json:"listed_at" db:"listed_at"`
}

// Resale 二級市場成交結果
type Resale struct {
	TicketID int64    `json:"ticket_id"`
	EventID  int64    `json:"event_id"`
	Seller   Identity `json:"seller"`
	Buyer    Identity `json:"buyer"`
	Price    Amount   `json:"price"`
}

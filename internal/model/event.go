package model

import (
	"time"
)

type Event struct {
	ID              int64     `json:"id" db:"id"`
	Organizer       Identity  `json:"organizer" db:"organizer"`
	MetadataURI     string    `json:"metadata_uri" db:"metadata_uri"`
	TicketPrice     Amount    `json:"ticket_price" db:"ticket_price"`
	MaxTickets      int       `json:"max_tickets" db:"max_tickets"`
	TicketsSold     int       `json:"tickets_sold" db:"tickets_sold"`
	EventDate       time.Time `json:"event_date" db:"event_date"`
	Cancelled       bool      `json:"cancelled" db:"cancelled"`
	GoldRequirement int       `json:"gold_requirement" db:"gold_requirement"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// IsSoldOut 檢查活動是否已售完
func (e *Event) IsSoldOut() bool {
	return e.TicketsSold >= e.MaxTickets
}

// RemainingTickets 剩餘可售票數
func (e *Event) RemainingTickets() int {
	if e.IsSoldOut() {
		return 0
	}
	return e.MaxTickets - e.TicketsSold
}

// IsOpenForSale 未取消且未售完
func (e *Event) IsOpenForSale() bool {
	return !e.Cancelled && !e.IsSoldOut()
}

// CreateEventParams 建立活動參數；GoldRequirement 為 nil 時採用主辦方當下的 Gold 門檻設定
type CreateEventParams struct {
	Organizer       Identity
	MetadataURI     string
	TicketPrice     Amount
	MaxTickets      int
	EventDate       time.Time
	GoldRequirement *int
}

// Validate 檢查建立參數，now 為建立當下時間
func (p CreateEventParams) Validate(now time.Time) bool {
	if p.Organizer.IsZero() {
		return false
	}
	if p.TicketPrice <= 0 || p.MaxTickets <= 0 {
		return false
	}
	if !TotalFits(p.TicketPrice, p.MaxTickets) {
		return false
	}
	if !p.EventDate.After(now) {
		return false
	}
	if p.GoldRequirement != nil && *p.GoldRequirement < 0 {
		return false
	}
	return true
}

type UpdateEventParams struct {
	MetadataURI *string
	TicketPrice *Amount
}

// Refund 取消活動時退給單一買家的金額
type Refund struct {
	Buyer  Identity `json:"buyer"`
	Amount Amount   `json:"amount"`
}

// CancellationReceipt 取消活動的退款結果
type CancellationReceipt struct {
	EventID       int64    `json:"event_id"`
	RefundPool    Amount   `json:"refund_pool"`
	TotalRefunded Amount   `json:"total_refunded"`
	Surplus       Amount   `json:"surplus"`
	Refunds       []Refund `json:"refunds"`
}

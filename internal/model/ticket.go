package model

import "time"

// Ticket 票券 (唯一可持有的代幣)，鑄造後綁定活動不可變更
type Ticket struct {
	ID        int64     `json:"id" db:"id"`
	EventID   int64     `json:"event_id" db:"event_id"`
	Owner     Identity  `json:"owner" db:"owner"`
	Approved  Identity  `json:"approved,omitempty" db:"approved"`
	MintedAt  time.Time `json:"minted_at" db:"minted_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsApproved 檢查 operator 是否持有此票的一次性授權
func (t *Ticket) IsApproved(operator Identity) bool {
	return !t.Approved.IsZero() && t.Approved == operator
}

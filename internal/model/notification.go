package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType 帳本狀態變更通知類型
type NotificationType string

const (
	NotificationEventCreated     NotificationType = "event_created"
	NotificationEventUpdated     NotificationType = "event_updated"
	NotificationTicketPurchased  NotificationType = "ticket_purchased"
	NotificationEventCancelled   NotificationType = "event_cancelled"
	NotificationTicketListed     NotificationType = "ticket_listed"
	NotificationListingCancelled NotificationType = "listing_cancelled"
	NotificationTicketResold     NotificationType = "ticket_resold"
)

// IsValid 驗證類型是否有效
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationEventCreated, NotificationEventUpdated, NotificationTicketPurchased,
		NotificationEventCancelled, NotificationTicketListed, NotificationListingCancelled,
		NotificationTicketResold:
		return true
	}
	return false
}

// Notification 提交後發布給索引器 / UI 的通知，Key 用於重複投遞去重
type Notification struct {
	ID           int64            `json:"id" db:"id"`
	Key          uuid.UUID        `json:"key" db:"key"`
	Type         NotificationType `json:"type" db:"type"`
	EventID      int64            `json:"event_id" db:"event_id"`
	TicketID     *int64           `json:"ticket_id,omitempty" db:"ticket_id"`
	Actor        Identity         `json:"actor" db:"actor"`
	Counterparty Identity         `json:"counterparty,omitempty" db:"counterparty"`
	Amount       Amount           `json:"amount" db:"amount"`
	OccurredAt   time.Time        `json:"occurred_at" db:"occurred_at"`
}

package service

import (
	"context"
	"time"

	"go-gin-ticket-ledger/internal/clock"
	"go-gin-ticket-ledger/internal/model"
	"go-gin-ticket-ledger/internal/queue"
	"go-gin-ticket-ledger/internal/repository"
	"go-gin-ticket-ledger/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// notifier 在交易提交後發布通知；發布失敗只記錄，不影響操作結果
type notifier struct {
	queue queue.NotificationQueue
	clock clock.Clock
	log   *zap.Logger
}

func newNotifier(q queue.NotificationQueue, clk clock.Clock) *notifier {
	return &notifier{queue: q, clock: clk, log: logger.WithComponent("notifier")}
}

func (n *notifier) build(typ model.NotificationType, eventID int64, ticketID *int64, actor, counterparty model.Identity, amount model.Amount) *model.Notification {
	return &model.Notification{
		Key:          uuid.New(),
		Type:         typ,
		EventID:      eventID,
		TicketID:     ticketID,
		Actor:        actor,
		Counterparty: counterparty,
		Amount:       amount,
		OccurredAt:   n.clock.Now(),
	}
}

func (n *notifier) publish(ctx context.Context, notes ...*model.Notification) {
	if n.queue == nil {
		return
	}
	// 請求結束不應中斷已提交操作的通知
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	for _, note := range notes {
		if err := n.queue.Publish(pubCtx, note); err != nil {
			n.log.Warn("publish notification failed",
				zap.String("type", string(note.Type)),
				zap.Int64("event_id", note.EventID),
				zap.String("key", note.Key.String()),
				zap.Error(err))
		}
	}
}

func ticketRef(id int64) *int64 {
	return &id
}

// NotificationService 索引 worker 寫入通知紀錄，並提供依活動查詢
type NotificationService interface {
	// Record 以 Key 去重，重複投遞不會重複寫入
	Record(ctx context.Context, n *model.Notification) error
	ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error)
}

type NotificationServiceImpl struct {
	repository repository.NotificationRepository
	log        *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &NotificationServiceImpl{repository: repo, log: logger.WithComponent("indexer")}
}

func (s *NotificationServiceImpl) Record(ctx context.Context, n *model.Notification) error {
	added, err := s.repository.Append(ctx, n)
	if err != nil {
		return err
	}
	if !added {
		s.log.Debug("duplicate notification ignored", zap.String("key", n.Key.String()))
	}
	return nil
}

func (s *NotificationServiceImpl) ListByEvent(ctx context.Context, eventID int64) ([]*model.Notification, error) {
	return s.repository.ListByEvent(ctx, eventID)
}

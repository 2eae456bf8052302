package worker

import (
	"context"

	"go-gin-ticket-ledger/internal/queue"
	"go-gin-ticket-ledger/internal/service"
	"go-gin-ticket-ledger/pkg/logger"

	"go.uber.org/zap"
)

type NotificationWorker interface {
	// Start 訂閱通知隊列，回傳的 channel 在消費結束後關閉
	Start(ctx context.Context) (<-chan struct{}, error)
}

type NotificationWorkerImpl struct {
	service service.NotificationService
	queue   queue.NotificationQueue
	log     *zap.Logger
}

func NewNotificationWorker(service service.NotificationService, queue queue.NotificationQueue) NotificationWorker {
	return &NotificationWorkerImpl{
		service: service,
		queue:   queue,
		log:     logger.WithComponent("worker"),
	}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) (<-chan struct{}, error) {
	msgs, err := w.queue.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			// 索引寫入失敗 (例如資料庫暫時斷線) 交給隊列重送
			if err := w.service.Record(ctx, msg.Data); err != nil {
				w.log.Warn("record notification failed",
					zap.String("key", msg.Data.Key.String()),
					zap.String("type", string(msg.Data.Type)),
					zap.Error(err))
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return done, nil
}

package messaging

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/quantora/hedgingengine/pkg/mq"
)

// OutboxRelay 发件箱中继
// 定期扫描 pending 消息批量发布到 Kafka；发送失败累计重试次数，
// 超过上限标记 failed 留待人工处理
type OutboxRelay struct {
	db          *gorm.DB
	producer    *mq.KafkaProducer
	topic       string
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

// NewOutboxRelay 创建中继
func NewOutboxRelay(db *gorm.DB, producer *mq.KafkaProducer, topic string, logger *slog.Logger) *OutboxRelay {
	return &OutboxRelay{
		db:          db,
		producer:    producer,
		topic:       topic,
		logger:      logger,
		interval:    time.Second,
		batchSize:   100,
		maxAttempts: 10,
	}
}

// Start 启动中继循环，ctx 取消后退出
func (r *OutboxRelay) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", "topic", r.topic, "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopping")
			return nil
		case <-ticker.C:
			if err := r.relayBatch(ctx); err != nil {
				r.logger.Error("outbox relay batch failed", "error", err)
			}
		}
	}
}

// relayBatch 处理一批 pending 消息
func (r *OutboxRelay) relayBatch(ctx context.Context) error {
	var messages []OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	for i := range messages {
		msg := &messages[i]
		if err := r.producer.Send(ctx, r.topic, msg.EventKey, []byte(msg.Payload)); err != nil {
			msg.Attempts++
			update := map[string]any{"attempts": msg.Attempts}
			if msg.Attempts >= r.maxAttempts {
				update["status"] = OutboxStatusFailed
				r.logger.Error("outbox message moved to failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"attempts", msg.Attempts)
			}
			r.db.WithContext(ctx).Model(msg).Updates(update)
			continue
		}
		r.db.WithContext(ctx).Model(msg).Updates(map[string]any{"status": OutboxStatusSent})
	}
	return nil
}

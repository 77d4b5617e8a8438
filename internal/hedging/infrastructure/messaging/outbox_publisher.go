// Package messaging 实现领域事件的 Outbox 发布与 Kafka 中继
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Outbox 消息状态
const (
	OutboxStatusPending = "pending"
	OutboxStatusSent    = "sent"
	OutboxStatusFailed  = "failed"
)

// OutboxMessage 事件发件箱记录
// 与业务写入同库落盘，由中继异步发布到 Kafka，构成持久审计日志
type OutboxMessage struct {
	ID        string    `gorm:"type:varchar(36);primary_key"`
	EventType string    `gorm:"type:varchar(100);index"`
	EventKey  string    `gorm:"type:varchar(100);index"`
	Payload   string    `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts  int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "hedging_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，使用 Outbox 模式
type OutboxEventPublisher struct {
	db *gorm.DB
}

// NewOutboxEventPublisher 创建 Outbox 发布器
func NewOutboxEventPublisher(db *gorm.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: db}
}

// Publish 序列化事件并写入发件箱
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	message := OutboxMessage{
		ID:        uuid.New().String(),
		EventType: eventType,
		EventKey:  key,
		Payload:   string(payload),
		Status:    OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	if err := p.db.WithContext(ctx).Create(&message).Error; err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

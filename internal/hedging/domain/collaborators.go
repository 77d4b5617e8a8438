package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle EUR/USD 价格预言机协作方
// 预言机自行处理过期与熔断逻辑，valid 为 false 时调用方必须拒绝操作
type PriceOracle interface {
	GetPrice(ctx context.Context) (price decimal.Decimal, valid bool, err error)
}

// CollateralVault 抵押金库协作方
// 保证金提取前需确认提取后 QEURO 发行仍然足额抵押
type CollateralVault interface {
	CheckCollateralizationAfter(ctx context.Context, marginRemoved decimal.Decimal) (bool, error)
}

// BlockSource 宿主账本区块高度来源，奖励计息按区块驱动
type BlockSource interface {
	CurrentBlock() uint64
}

// IDGenerator 仓位 ID 生成器，要求单调递增且永不复用
type IDGenerator interface {
	NextID() int64
}

// EventPublisher 领域事件发布接口
// 事件是对外的持久审计日志，每次状态转移都必须发布
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, event any) error
}

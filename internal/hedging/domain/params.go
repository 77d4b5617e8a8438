package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EngineParams 引擎风控参数
// 全部比率类参数以基点（bps）配置，金额类参数为绝对上限
type EngineParams struct {
	// MaxLeverage 最大杠杆倍数
	MaxLeverage decimal.Decimal
	// MinMarginRatio 开仓后允许的最低保证金率
	MinMarginRatio decimal.Decimal
	// MaxMarginRatio 开仓后允许的最高保证金率
	MaxMarginRatio decimal.Decimal
	// LiquidationThreshold 强平阈值，有效保证金率低于该值可被强平
	LiquidationThreshold decimal.Decimal
	// EntryFeeBps 开仓费率（基点），在加杠杆之前从保证金中扣除
	EntryFeeBps int64
	// ExitFeeBps 平仓费率（基点）
	ExitFeeBps int64
	// LiquidationRewardBps 强平奖励费率（基点），按剩余保证金计
	LiquidationRewardBps int64
	// MaxLiquidationRewardBps 强平奖励费率上限
	MaxLiquidationRewardBps int64
	// MaxPositionsPerHedger 单个对冲方最大并发仓位数
	MaxPositionsPerHedger int
	// MaxMarginPerPosition 单仓保证金绝对上限（防编码溢出）
	MaxMarginPerPosition decimal.Decimal
	// MaxPositionSize 单仓名义绝对上限
	MaxPositionSize decimal.Decimal
	// MaxEntryPrice 开仓价格绝对上限
	MaxEntryPrice decimal.Decimal
	// MaxTotalMargin 协议级总保证金上限
	MaxTotalMargin decimal.Decimal
	// MaxTotalExposure 协议级总敞口上限
	MaxTotalExposure decimal.Decimal
	// LiquidationCooldown 强平承诺生效前的冷却期
	LiquidationCooldown time.Duration
	// CommitmentWindow 强平承诺最大有效窗口，超时视为过期
	CommitmentWindow time.Duration
	// EURInterestRateBps 欧元年化利率（基点）
	EURInterestRateBps int64
	// USDInterestRateBps 美元年化利率（基点）
	USDInterestRateBps int64
	// MaxRewardPeriodBlocks 单次计息最多覆盖的区块数
	MaxRewardPeriodBlocks uint64
	// BlocksPerYear 年化区块数
	BlocksPerYear uint64
	// MaxPendingRewards 待领取奖励累计上限，计息在此截断，领取后恢复
	MaxPendingRewards decimal.Decimal
}

// DefaultEngineParams 默认参数，对齐主网治理配置
func DefaultEngineParams() EngineParams {
	return EngineParams{
		MaxLeverage:             decimal.NewFromInt(20),
		MinMarginRatio:          decimal.NewFromFloat(0.05),
		MaxMarginRatio:          decimal.NewFromInt(1),
		LiquidationThreshold:    decimal.NewFromFloat(0.01),
		EntryFeeBps:             20,
		ExitFeeBps:              20,
		LiquidationRewardBps:    200,
		MaxLiquidationRewardBps: 500,
		MaxPositionsPerHedger:   50,
		MaxMarginPerPosition:    decimal.New(1, 9),
		MaxPositionSize:         decimal.New(1, 10),
		MaxEntryPrice:           decimal.New(1, 4),
		MaxTotalMargin:          decimal.New(1, 11),
		MaxTotalExposure:        decimal.New(1, 12),
		LiquidationCooldown:     5 * time.Minute,
		CommitmentWindow:        time.Hour,
		EURInterestRateBps:      350,
		USDInterestRateBps:      250,
		MaxRewardPeriodBlocks:   7200,
		BlocksPerYear:           2628000,
		MaxPendingRewards:       decimal.New(1, 8),
	}
}

// Validate 校验参数自洽性
func (p EngineParams) Validate() error {
	if p.MaxLeverage.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidLeverage
	}
	if p.MinMarginRatio.GreaterThan(p.MaxMarginRatio) {
		return ErrMarginRatioTooLow
	}
	if p.LiquidationRewardBps > p.MaxLiquidationRewardBps {
		return ErrLiquidationRewardTooHigh
	}
	return nil
}

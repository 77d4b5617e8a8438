package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Position 对冲仓位
// 仓位在开仓时创建，平仓或强平后仅置为非激活，历史记录不会物理删除
type Position struct {
	PositionID     int64           `json:"position_id"`
	Hedger         string          `json:"hedger"`
	PositionSize   decimal.Decimal `json:"position_size"`
	Margin         decimal.Decimal `json:"margin"`
	EntryPrice     decimal.Decimal `json:"entry_price"`
	Leverage       decimal.Decimal `json:"leverage"`
	EntryTime      int64           `json:"entry_time"`
	LastUpdateTime int64           `json:"last_update_time"`
	IsActive       bool            `json:"is_active"`
}

// HedgerAccount 对冲方聚合账户
// TotalMargin/TotalExposure 必须始终等于该对冲方所有活跃仓位的合计
type HedgerAccount struct {
	Hedger          string          `json:"hedger"`
	TotalMargin     decimal.Decimal `json:"total_margin"`
	TotalExposure   decimal.Decimal `json:"total_exposure"`
	PendingRewards  decimal.Decimal `json:"pending_rewards"`
	LastRewardClaim int64           `json:"last_reward_claim"`
	LastRewardBlock uint64          `json:"last_reward_block"`
	IsActive        bool            `json:"is_active"`
}

// NewHedgerAccount 创建对冲方账户，默认未加入白名单
func NewHedgerAccount(hedger string) *HedgerAccount {
	return &HedgerAccount{
		Hedger:         hedger,
		TotalMargin:    decimal.Zero,
		TotalExposure:  decimal.Zero,
		PendingRewards: decimal.Zero,
	}
}

// ValidateTimestamp 校验时间戳落在 32 位范围内
// 仓位时间字段按协议约定以 32 位秒级时间戳编码
func ValidateTimestamp(t time.Time) (int64, error) {
	ts := t.Unix()
	if ts < 0 || ts > math.MaxUint32 {
		return 0, ErrTimestampOverflow
	}
	return ts, nil
}

// UnrealizedPnL 计算仓位的未实现盈亏
// 对冲方向为做空 EUR/做多 USD，EUR/USD 下跌时盈亏为正：
// pnl = positionSize × (entryPrice − currentPrice) / entryPrice
// 该值按需计算，从不作为持久化的权威数据
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	if p.EntryPrice.IsZero() {
		return decimal.Zero
	}
	return MulDivDown(p.PositionSize, p.EntryPrice.Sub(currentPrice), p.EntryPrice)
}

// MarginRatio 计算当前价格下的有效保证金率
// 有效保证金 = 名义保证金 + 未实现盈亏，保证金率 = 有效保证金 / 仓位名义
func (p *Position) MarginRatio(currentPrice decimal.Decimal) decimal.Decimal {
	if p.PositionSize.IsZero() {
		return decimal.Zero
	}
	effective := p.Margin.Add(p.UnrealizedPnL(currentPrice))
	return DivDown(effective, p.PositionSize)
}

package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
)

// OpenPositionCommand 开仓命令
type OpenPositionCommand struct {
	Hedger   string          `json:"hedger"`
	Margin   decimal.Decimal `json:"margin"`
	Leverage decimal.Decimal `json:"leverage"`
}

// ClosePositionCommand 平仓命令
type ClosePositionCommand struct {
	Hedger     string `json:"hedger"`
	PositionID int64  `json:"position_id"`
}

// MarginCommand 保证金调整命令
type MarginCommand struct {
	Hedger     string          `json:"hedger"`
	PositionID int64           `json:"position_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// CommitLiquidationCommand 强平承诺命令
type CommitLiquidationCommand struct {
	Liquidator string   `json:"liquidator"`
	Hedger     string   `json:"hedger"`
	PositionID int64    `json:"position_id"`
	Hash       [32]byte `json:"-"`
}

// ExecuteLiquidationCommand 强平执行命令
type ExecuteLiquidationCommand struct {
	Liquidator string   `json:"liquidator"`
	Hedger     string   `json:"hedger"`
	PositionID int64    `json:"position_id"`
	Salt       [32]byte `json:"-"`
}

// PositionDTO 仓位视图
type PositionDTO struct {
	PositionID     int64  `json:"position_id"`
	Hedger         string `json:"hedger"`
	PositionSize   string `json:"position_size"`
	Margin         string `json:"margin"`
	EntryPrice     string `json:"entry_price"`
	Leverage       string `json:"leverage"`
	EntryTime      int64  `json:"entry_time"`
	LastUpdateTime int64  `json:"last_update_time"`
	IsActive       bool   `json:"is_active"`
	UnrealizedPnL  string `json:"unrealized_pnl,omitempty"`
	MarginRatio    string `json:"margin_ratio,omitempty"`
}

// AccountDTO 对冲方账户视图
type AccountDTO struct {
	Hedger          string `json:"hedger"`
	TotalMargin     string `json:"total_margin"`
	TotalExposure   string `json:"total_exposure"`
	PendingRewards  string `json:"pending_rewards"`
	LastRewardClaim int64  `json:"last_reward_claim"`
	IsActive        bool   `json:"is_active"`
	ActivePositions int    `json:"active_positions"`
}

// OpenPositionResult 开仓返回
type OpenPositionResult struct {
	Position *PositionDTO `json:"position"`
	Fee      string       `json:"fee"`
}

// ClosePositionResult 平仓返回
type ClosePositionResult struct {
	PositionID int64  `json:"position_id"`
	PnL        string `json:"pnl"`
	Fee        string `json:"fee"`
	Payout     string `json:"payout"`
}

// LiquidationResultDTO 强平返回
type LiquidationResultDTO struct {
	PositionID int64  `json:"position_id"`
	Hedger     string `json:"hedger"`
	Liquidator string `json:"liquidator"`
	Reward     string `json:"reward"`
	Residual   string `json:"residual"`
	PnL        string `json:"pnl"`
}

// CommitmentDTO 强平承诺视图
type CommitmentDTO struct {
	Hedger       string    `json:"hedger"`
	PositionID   int64     `json:"position_id"`
	Liquidator   string    `json:"liquidator"`
	CommitTime   time.Time `json:"commit_time"`
	ExecutableAt time.Time `json:"executable_at"`
}

// ClaimRewardsResult 奖励领取返回
type ClaimRewardsResult struct {
	Hedger string `json:"hedger"`
	Amount string `json:"amount"`
}

func toPositionDTO(p *domain.Position) *PositionDTO {
	return &PositionDTO{
		PositionID:     p.PositionID,
		Hedger:         p.Hedger,
		PositionSize:   p.PositionSize.String(),
		Margin:         p.Margin.String(),
		EntryPrice:     p.EntryPrice.String(),
		Leverage:       p.Leverage.String(),
		EntryTime:      p.EntryTime,
		LastUpdateTime: p.LastUpdateTime,
		IsActive:       p.IsActive,
	}
}

func toAccountDTO(acc *domain.HedgerAccount, activePositions int) *AccountDTO {
	return &AccountDTO{
		Hedger:          acc.Hedger,
		TotalMargin:     acc.TotalMargin.String(),
		TotalExposure:   acc.TotalExposure.String(),
		PendingRewards:  acc.PendingRewards.String(),
		LastRewardClaim: acc.LastRewardClaim,
		IsActive:        acc.IsActive,
		ActivePositions: activePositions,
	}
}

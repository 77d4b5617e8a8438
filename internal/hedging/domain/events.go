package domain

import "time"

const (
	PositionOpenedEventType       = "HedgePositionOpened"
	PositionClosedEventType       = "HedgePositionClosed"
	MarginAddedEventType          = "HedgeMarginAdded"
	MarginRemovedEventType        = "HedgeMarginRemoved"
	LiquidationCommittedEventType = "LiquidationCommitted"
	LiquidationExecutedEventType  = "LiquidationExecuted"
	RewardsClaimedEventType       = "HedgeRewardsClaimed"
	HedgerWhitelistedEventType    = "HedgerWhitelisted"
	HedgerSuspendedEventType      = "HedgerSuspended"
)

// PositionOpenedEvent 开仓事件
type PositionOpenedEvent struct {
	PositionID   int64     `json:"position_id"`
	Hedger       string    `json:"hedger"`
	Margin       string    `json:"margin"`
	PositionSize string    `json:"position_size"`
	EntryPrice   string    `json:"entry_price"`
	Leverage     string    `json:"leverage"`
	Fee          string    `json:"fee"`
	OccurredOn   time.Time `json:"occurred_on"`
}

// PositionClosedEvent 平仓事件
type PositionClosedEvent struct {
	PositionID int64     `json:"position_id"`
	Hedger     string    `json:"hedger"`
	ExitPrice  string    `json:"exit_price"`
	PnL        string    `json:"pnl"`
	Fee        string    `json:"fee"`
	Payout     string    `json:"payout"`
	OccurredOn time.Time `json:"occurred_on"`
}

// MarginAddedEvent 追加保证金事件
type MarginAddedEvent struct {
	PositionID int64     `json:"position_id"`
	Hedger     string    `json:"hedger"`
	Amount     string    `json:"amount"`
	NewMargin  string    `json:"new_margin"`
	OccurredOn time.Time `json:"occurred_on"`
}

// MarginRemovedEvent 提取保证金事件
type MarginRemovedEvent struct {
	PositionID int64     `json:"position_id"`
	Hedger     string    `json:"hedger"`
	Amount     string    `json:"amount"`
	NewMargin  string    `json:"new_margin"`
	OccurredOn time.Time `json:"occurred_on"`
}

// LiquidationCommittedEvent 强平承诺事件
type LiquidationCommittedEvent struct {
	PositionID int64     `json:"position_id"`
	Hedger     string    `json:"hedger"`
	Liquidator string    `json:"liquidator"`
	CommitTime time.Time `json:"commit_time"`
	OccurredOn time.Time `json:"occurred_on"`
}

// LiquidationExecutedEvent 强平执行事件
type LiquidationExecutedEvent struct {
	PositionID int64     `json:"position_id"`
	Hedger     string    `json:"hedger"`
	Liquidator string    `json:"liquidator"`
	ExitPrice  string    `json:"exit_price"`
	Reward     string    `json:"reward"`
	Residual   string    `json:"residual"`
	PnL        string    `json:"pnl"`
	OccurredOn time.Time `json:"occurred_on"`
}

// RewardsClaimedEvent 奖励领取事件
type RewardsClaimedEvent struct {
	Hedger     string    `json:"hedger"`
	Amount     string    `json:"amount"`
	ClaimedAt  int64     `json:"claimed_at"`
	OccurredOn time.Time `json:"occurred_on"`
}

// HedgerWhitelistedEvent 对冲方准入事件
type HedgerWhitelistedEvent struct {
	Hedger     string    `json:"hedger"`
	OccurredOn time.Time `json:"occurred_on"`
}

// HedgerSuspendedEvent 对冲方停用事件
type HedgerSuspendedEvent struct {
	Hedger     string    `json:"hedger"`
	OccurredOn time.Time `json:"occurred_on"`
}

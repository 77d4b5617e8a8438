package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarginEngine 保证金引擎
// 负责开平仓数学、保证金率与盈亏计算；所有校验在任何状态写入之前完成，
// 任一校验失败即整体失败，不产生部分变更
type MarginEngine struct {
	params *EngineParams
	ledger *PositionLedger
	trez   *Treasury
	vault  CollateralVault
	idgen  IDGenerator

	now func() time.Time
}

// NewMarginEngine 创建保证金引擎
func NewMarginEngine(params *EngineParams, ledger *PositionLedger, trez *Treasury, vault CollateralVault, idgen IDGenerator) *MarginEngine {
	return &MarginEngine{
		params: params,
		ledger: ledger,
		trez:   trez,
		vault:  vault,
		idgen:  idgen,
		now:    time.Now,
	}
}

// OpenResult 开仓结果
type OpenResult struct {
	Position  *Position
	Fee       decimal.Decimal
	NetMargin decimal.Decimal
}

// CloseResult 平仓结果
type CloseResult struct {
	PositionID int64
	PnL        decimal.Decimal
	Fee        decimal.Decimal
	Payout     decimal.Decimal
}

// OpenPosition 开仓
// 费用在加杠杆之前扣除：positionSize = (margin − fee) × leverage；
// 调换顺序会在相同输入下改变偿付能力结果，必须保持该顺序。
// 校验顺序：白名单 → 杠杆区间 → 绝对上限 → 保证金率区间 → 仓位数 → 协议级合计上限
func (e *MarginEngine) OpenPosition(hedger string, margin, leverage, price decimal.Decimal) (*OpenResult, error) {
	acc, ok := e.ledger.Account(hedger)
	if !ok || !acc.IsActive {
		return nil, ErrHedgerNotWhitelisted
	}

	if leverage.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidLeverage
	}
	if leverage.GreaterThan(e.params.MaxLeverage) {
		return nil, ErrLeverageTooHigh
	}
	if margin.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidMarginAmount
	}

	fee := BpsOf(margin, e.params.EntryFeeBps)
	netMargin := margin.Sub(fee)
	if netMargin.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInsufficientMargin
	}
	positionSize := netMargin.Mul(leverage)

	if margin.GreaterThan(e.params.MaxMarginPerPosition) {
		return nil, ErrMarginExceedsMaximum
	}
	if positionSize.GreaterThan(e.params.MaxPositionSize) {
		return nil, ErrPositionSizeExceedsMaximum
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidOraclePrice
	}
	if price.GreaterThan(e.params.MaxEntryPrice) {
		return nil, ErrEntryPriceExceedsMaximum
	}

	marginRatio := DivDown(netMargin, positionSize)
	if marginRatio.LessThan(e.params.MinMarginRatio) {
		return nil, ErrMarginRatioTooLow
	}
	if marginRatio.GreaterThan(e.params.MaxMarginRatio) {
		return nil, ErrMarginRatioTooHigh
	}

	if e.ledger.ActivePositionCount(hedger) >= e.params.MaxPositionsPerHedger {
		return nil, ErrTooManyPositions
	}
	if e.ledger.TotalMargin().Add(netMargin).GreaterThan(e.params.MaxTotalMargin) {
		return nil, ErrTotalMarginExceedsMaximum
	}
	if e.ledger.TotalExposure().Add(positionSize).GreaterThan(e.params.MaxTotalExposure) {
		return nil, ErrTotalExposureExceedsMaximum
	}

	ts, err := ValidateTimestamp(e.now())
	if err != nil {
		return nil, err
	}

	pos := &Position{
		PositionID:     e.idgen.NextID(),
		Hedger:         hedger,
		PositionSize:   positionSize,
		Margin:         netMargin,
		EntryPrice:     price,
		Leverage:       leverage,
		EntryTime:      ts,
		LastUpdateTime: ts,
		IsActive:       true,
	}
	if err := e.ledger.AddPosition(hedger, pos); err != nil {
		return nil, err
	}
	e.trez.Credit(margin)

	return &OpenResult{Position: pos, Fee: fee, NetMargin: netMargin}, nil
}

// ClosePosition 平仓
// 以当前价格结算盈亏，扣除平仓费后将余款支付给对冲方
func (e *MarginEngine) ClosePosition(hedger string, positionID int64, price decimal.Decimal) (*CloseResult, error) {
	pos, err := e.activeOwnedPosition(hedger, positionID)
	if err != nil {
		return nil, err
	}

	pnl := pos.UnrealizedPnL(price)
	proceeds := MaxDecimal(pos.Margin.Add(pnl), decimal.Zero)
	fee := BpsOf(proceeds, e.params.ExitFeeBps)
	payout := proceeds.Sub(fee)

	ts, err := ValidateTimestamp(e.now())
	if err != nil {
		return nil, err
	}
	if err := e.ledger.RemovePosition(hedger, positionID, ts); err != nil {
		return nil, err
	}
	if err := e.trez.Debit(payout); err != nil {
		return nil, err
	}

	return &CloseResult{PositionID: positionID, PnL: pnl, Fee: fee, Payout: payout}, nil
}

// AddMargin 追加保证金
func (e *MarginEngine) AddMargin(hedger string, positionID int64, amount decimal.Decimal) (*Position, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidMarginAmount
	}
	pos, err := e.activeOwnedPosition(hedger, positionID)
	if err != nil {
		return nil, err
	}

	newMargin := pos.Margin.Add(amount)
	if newMargin.GreaterThan(e.params.MaxMarginPerPosition) {
		return nil, ErrMarginExceedsMaximum
	}
	if e.ledger.TotalMargin().Add(amount).GreaterThan(e.params.MaxTotalMargin) {
		return nil, ErrTotalMarginExceedsMaximum
	}

	ts, err := ValidateTimestamp(e.now())
	if err != nil {
		return nil, err
	}

	e.ledger.AdjustMargin(pos, amount, ts)
	e.trez.Credit(amount)
	return pos, nil
}

// RemoveMargin 提取保证金
// 除本仓位保证金率校验外，还需请求金库确认提取后 QEURO 发行仍足额抵押，
// 即使本仓位自身仍然安全也可能被金库侧拒绝
func (e *MarginEngine) RemoveMargin(ctx context.Context, hedger string, positionID int64, amount decimal.Decimal) (*Position, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidMarginAmount
	}
	pos, err := e.activeOwnedPosition(hedger, positionID)
	if err != nil {
		return nil, err
	}

	newMargin := pos.Margin.Sub(amount)
	if newMargin.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInsufficientMargin
	}
	newRatio := DivDown(newMargin, pos.PositionSize)
	if newRatio.LessThan(e.params.MinMarginRatio) {
		return nil, ErrMarginRatioTooLow
	}

	ok, err := e.vault.CheckCollateralizationAfter(ctx, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVaultUndercollateralized
	}

	ts, err := ValidateTimestamp(e.now())
	if err != nil {
		return nil, err
	}

	e.ledger.AdjustMargin(pos, amount.Neg(), ts)
	if err := e.trez.Debit(amount); err != nil {
		return nil, err
	}
	return pos, nil
}

// IsLiquidatable 判断仓位在给定价格下是否可被强平
func (e *MarginEngine) IsLiquidatable(pos *Position, price decimal.Decimal) bool {
	return pos.MarginRatio(price).LessThan(e.params.LiquidationThreshold)
}

// activeOwnedPosition 查找归属校验通过的活跃仓位
func (e *MarginEngine) activeOwnedPosition(hedger string, positionID int64) (*Position, error) {
	pos, ok := e.ledger.Position(positionID)
	if !ok {
		return nil, ErrPositionNotFound
	}
	if pos.Hedger != hedger {
		return nil, ErrPositionOwnerMismatch
	}
	if !pos.IsActive {
		return nil, ErrPositionNotActive
	}
	return pos, nil
}

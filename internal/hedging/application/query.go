package application

import (
	"context"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
)

// HedgingQuery 对冲引擎读入口
// 读路径共享命令侧的内存总账，经同一把互斥锁保证观察点一致
type HedgingQuery struct {
	cmd    *HedgingCommand
	oracle domain.PriceOracle
}

// NewHedgingQuery 构造读入口
func NewHedgingQuery(cmd *HedgingCommand, oracle domain.PriceOracle) *HedgingQuery {
	return &HedgingQuery{cmd: cmd, oracle: oracle}
}

// GetPosition 查询仓位，附带当前价格下的未实现盈亏与保证金率
func (q *HedgingQuery) GetPosition(ctx context.Context, positionID int64) (*PositionDTO, error) {
	price, valid, err := q.oracle.GetPrice(ctx)

	q.cmd.mu.Lock()
	defer q.cmd.mu.Unlock()

	pos, ok := q.cmd.ledger.Position(positionID)
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	dto := toPositionDTO(pos)
	if err == nil && valid && pos.IsActive {
		dto.UnrealizedPnL = pos.UnrealizedPnL(price).String()
		dto.MarginRatio = pos.MarginRatio(price).String()
	}
	return dto, nil
}

// ListPositions 查询对冲方的活跃仓位
func (q *HedgingQuery) ListPositions(ctx context.Context, hedger string) ([]*PositionDTO, error) {
	price, valid, priceErr := q.oracle.GetPrice(ctx)

	q.cmd.mu.Lock()
	defer q.cmd.mu.Unlock()

	ids := q.cmd.ledger.ActivePositionIDs(hedger)
	out := make([]*PositionDTO, 0, len(ids))
	for _, id := range ids {
		pos, ok := q.cmd.ledger.Position(id)
		if !ok {
			continue
		}
		dto := toPositionDTO(pos)
		if priceErr == nil && valid {
			dto.UnrealizedPnL = pos.UnrealizedPnL(price).String()
			dto.MarginRatio = pos.MarginRatio(price).String()
		}
		out = append(out, dto)
	}
	return out, nil
}

// GetAccount 查询对冲方账户
func (q *HedgingQuery) GetAccount(_ context.Context, hedger string) (*AccountDTO, error) {
	q.cmd.mu.Lock()
	defer q.cmd.mu.Unlock()

	acc, ok := q.cmd.ledger.Account(hedger)
	if !ok {
		return nil, domain.ErrHedgerAccountNotFound
	}
	return toAccountDTO(acc, q.cmd.ledger.ActivePositionCount(hedger)), nil
}

// GetCommitment 查询仓位上的未过期强平承诺
func (q *HedgingQuery) GetCommitment(_ context.Context, hedger string, positionID int64) (*CommitmentDTO, error) {
	q.cmd.mu.Lock()
	defer q.cmd.mu.Unlock()

	c, ok := q.cmd.liquidation.PendingCommitment(hedger, positionID)
	if !ok {
		return nil, domain.ErrNoValidCommitment
	}
	return &CommitmentDTO{
		Hedger:       c.Hedger,
		PositionID:   c.PositionID,
		Liquidator:   c.Liquidator,
		CommitTime:   c.CommitTime,
		ExecutableAt: c.CommitTime.Add(q.cmd.params.LiquidationCooldown),
	}, nil
}

// GetParams 查询引擎风控参数
func (q *HedgingQuery) GetParams(_ context.Context) domain.EngineParams {
	q.cmd.mu.Lock()
	defer q.cmd.mu.Unlock()
	return *q.cmd.params
}

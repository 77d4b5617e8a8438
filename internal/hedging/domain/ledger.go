package domain

import "github.com/shopspring/decimal"

// PositionLedger 仓位总账
// 独占持有 Position 与 HedgerAccount 记录，其他组件只能经由
// MarginEngine/LiquidationEngine 的校验函数间接修改
type PositionLedger struct {
	positions map[int64]*Position
	accounts  map[string]*HedgerAccount
	// hedgerPositions 按插入顺序维护每个对冲方的活跃仓位 ID
	hedgerPositions map[string][]int64
	// positionIndex 仓位 ID 到 hedgerPositions 下标的映射，支持 O(1) 删除
	positionIndex map[int64]int

	// totalMargin/totalExposure 协议级合计，跨所有对冲方
	totalMargin   decimal.Decimal
	totalExposure decimal.Decimal

	maxPositionsPerHedger int
}

// NewPositionLedger 创建空总账
func NewPositionLedger(maxPositionsPerHedger int) *PositionLedger {
	return &PositionLedger{
		positions:             make(map[int64]*Position),
		accounts:              make(map[string]*HedgerAccount),
		hedgerPositions:       make(map[string][]int64),
		positionIndex:         make(map[int64]int),
		totalMargin:           decimal.Zero,
		totalExposure:         decimal.Zero,
		maxPositionsPerHedger: maxPositionsPerHedger,
	}
}

// TotalMargin 协议级总保证金
func (l *PositionLedger) TotalMargin() decimal.Decimal {
	return l.totalMargin
}

// TotalExposure 协议级总敞口
func (l *PositionLedger) TotalExposure() decimal.Decimal {
	return l.totalExposure
}

// Account 查询对冲方账户
func (l *PositionLedger) Account(hedger string) (*HedgerAccount, bool) {
	acc, ok := l.accounts[hedger]
	return acc, ok
}

// EnsureAccount 获取或创建对冲方账户
func (l *PositionLedger) EnsureAccount(hedger string) *HedgerAccount {
	if acc, ok := l.accounts[hedger]; ok {
		return acc
	}
	acc := NewHedgerAccount(hedger)
	l.accounts[hedger] = acc
	return acc
}

// Position 查询仓位（含历史的非激活仓位）
func (l *PositionLedger) Position(positionID int64) (*Position, bool) {
	p, ok := l.positions[positionID]
	return p, ok
}

// ActivePositionIDs 返回对冲方的活跃仓位 ID（插入顺序）
func (l *PositionLedger) ActivePositionIDs(hedger string) []int64 {
	ids := l.hedgerPositions[hedger]
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

// ActivePositionCount 对冲方当前活跃仓位数
func (l *PositionLedger) ActivePositionCount(hedger string) int {
	return len(l.hedgerPositions[hedger])
}

// AddPosition 登记新仓位并在同一操作内更新聚合合计
// 超过单对冲方并发仓位上限时返回 ErrTooManyPositions
func (l *PositionLedger) AddPosition(hedger string, pos *Position) error {
	if len(l.hedgerPositions[hedger]) >= l.maxPositionsPerHedger {
		return ErrTooManyPositions
	}

	acc := l.EnsureAccount(hedger)

	l.positions[pos.PositionID] = pos
	l.positionIndex[pos.PositionID] = len(l.hedgerPositions[hedger])
	l.hedgerPositions[hedger] = append(l.hedgerPositions[hedger], pos.PositionID)

	acc.TotalMargin = acc.TotalMargin.Add(pos.Margin)
	acc.TotalExposure = acc.TotalExposure.Add(pos.PositionSize)
	l.totalMargin = l.totalMargin.Add(pos.Margin)
	l.totalExposure = l.totalExposure.Add(pos.PositionSize)
	return nil
}

// RemovePosition 将仓位从活跃索引移除并同步扣减聚合合计
// 使用 swap-and-pop 保证 O(1)；仓位记录本身保留为非激活历史，
// 其最后更新时间刷新为关闭时刻
func (l *PositionLedger) RemovePosition(hedger string, positionID int64, updateTime int64) error {
	pos, ok := l.positions[positionID]
	if !ok || pos.Hedger != hedger {
		return ErrPositionNotFound
	}
	idx, ok := l.positionIndex[positionID]
	if !ok {
		return ErrPositionNotFound
	}

	ids := l.hedgerPositions[hedger]
	last := len(ids) - 1
	if idx != last {
		moved := ids[last]
		ids[idx] = moved
		l.positionIndex[moved] = idx
	}
	l.hedgerPositions[hedger] = ids[:last]
	delete(l.positionIndex, positionID)

	acc := l.EnsureAccount(hedger)
	acc.TotalMargin = acc.TotalMargin.Sub(pos.Margin)
	acc.TotalExposure = acc.TotalExposure.Sub(pos.PositionSize)
	l.totalMargin = l.totalMargin.Sub(pos.Margin)
	l.totalExposure = l.totalExposure.Sub(pos.PositionSize)

	pos.IsActive = false
	pos.LastUpdateTime = updateTime
	return nil
}

// AdjustMargin 调整仓位保证金并同步聚合合计
// delta 可为负；调用方负责所有风控校验
func (l *PositionLedger) AdjustMargin(pos *Position, delta decimal.Decimal, updateTime int64) {
	pos.Margin = pos.Margin.Add(delta)
	pos.LastUpdateTime = updateTime
	acc := l.EnsureAccount(pos.Hedger)
	acc.TotalMargin = acc.TotalMargin.Add(delta)
	l.totalMargin = l.totalMargin.Add(delta)
}

// Checkpoint 生成针对单个对冲方的状态快照，返回恢复函数
// 入口点的余额不变量校验失败时用于整体回滚
func (l *PositionLedger) Checkpoint(hedger string) func() {
	savedTotalMargin := l.totalMargin
	savedTotalExposure := l.totalExposure

	var accCopy *HedgerAccount
	if acc, ok := l.accounts[hedger]; ok {
		c := *acc
		accCopy = &c
	}

	ids := make([]int64, len(l.hedgerPositions[hedger]))
	copy(ids, l.hedgerPositions[hedger])

	posCopies := make(map[int64]Position, len(ids))
	idxCopies := make(map[int64]int, len(ids))
	for _, id := range ids {
		if p, ok := l.positions[id]; ok {
			posCopies[id] = *p
		}
		if i, ok := l.positionIndex[id]; ok {
			idxCopies[id] = i
		}
	}

	return func() {
		l.totalMargin = savedTotalMargin
		l.totalExposure = savedTotalExposure

		if accCopy == nil {
			delete(l.accounts, hedger)
		} else {
			c := *accCopy
			l.accounts[hedger] = &c
		}

		// 快照之后新增的仓位需要摘除
		for _, id := range l.hedgerPositions[hedger] {
			if _, ok := posCopies[id]; !ok {
				delete(l.positions, id)
				delete(l.positionIndex, id)
			}
		}

		restored := make([]int64, len(ids))
		copy(restored, ids)
		l.hedgerPositions[hedger] = restored
		for id, p := range posCopies {
			c := p
			l.positions[id] = &c
		}
		for id, i := range idxCopies {
			l.positionIndex[id] = i
		}
	}
}

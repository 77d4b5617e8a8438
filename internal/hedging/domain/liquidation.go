package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/shopspring/decimal"
)

// LiquidationCommitment 强平承诺（commit-reveal 的第一阶段）
// 承诺哈希绑定 (hedger, positionID, salt, liquidator)，
// 使观察到可强平仓位的竞争清算人无法抢跑已承诺的清算
type LiquidationCommitment struct {
	Hedger     string    `json:"hedger"`
	PositionID int64     `json:"position_id"`
	Hash       [32]byte  `json:"-"`
	Liquidator string    `json:"liquidator"`
	CommitTime time.Time `json:"commit_time"`
}

// CommitmentHash 计算承诺哈希
func CommitmentHash(hedger string, positionID int64, salt [32]byte, liquidator string) [32]byte {
	h := sha256.New()
	h.Write([]byte(hedger))
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(positionID))
	h.Write(idBuf[:])
	h.Write(salt[:])
	h.Write([]byte(liquidator))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// LiquidationResult 强平结果
type LiquidationResult struct {
	PositionID int64           `json:"position_id"`
	Hedger     string          `json:"hedger"`
	Liquidator string          `json:"liquidator"`
	Reward     decimal.Decimal `json:"reward"`
	Residual   decimal.Decimal `json:"residual"`
	PnL        decimal.Decimal `json:"pnl"`
}

// LiquidationEngine 强平引擎
// 每个 (hedger, positionID) 的状态机：
// NoCommitment → Committed → (冷却期满) Executable → Executed | 过期/失效
// 过期惰性判定，在下一次交互时检查，没有后台定时器
type LiquidationEngine struct {
	params      *EngineParams
	ledger      *PositionLedger
	margin      *MarginEngine
	trez        *Treasury
	commitments map[commitmentKey]*LiquidationCommitment

	now func() time.Time
}

type commitmentKey struct {
	hedger     string
	positionID int64
}

// NewLiquidationEngine 创建强平引擎
func NewLiquidationEngine(params *EngineParams, ledger *PositionLedger, margin *MarginEngine, trez *Treasury) *LiquidationEngine {
	return &LiquidationEngine{
		params:      params,
		ledger:      ledger,
		margin:      margin,
		trez:        trez,
		commitments: make(map[commitmentKey]*LiquidationCommitment),
		now:         time.Now,
	}
}

// Commit 登记强平承诺
// 已存在未过期的承诺时返回 ErrCommitmentAlreadyExists；
// 超过最大窗口的陈旧承诺可被其他清算人的新承诺覆盖
func (e *LiquidationEngine) Commit(liquidator, hedger string, positionID int64, hash [32]byte) (*LiquidationCommitment, error) {
	pos, ok := e.ledger.Position(positionID)
	if !ok || pos.Hedger != hedger {
		return nil, ErrPositionNotFound
	}
	if !pos.IsActive {
		return nil, ErrPositionNotActive
	}

	key := commitmentKey{hedger: hedger, positionID: positionID}
	if existing, ok := e.commitments[key]; ok && !e.expired(existing) {
		return nil, ErrCommitmentAlreadyExists
	}

	c := &LiquidationCommitment{
		Hedger:     hedger,
		PositionID: positionID,
		Hash:       hash,
		Liquidator: liquidator,
		CommitTime: e.clock(),
	}
	e.commitments[key] = c
	return c, nil
}

// Execute 揭示并执行强平
// 执行时重新校验资格（价格可能已变动）；冷却期未满返回 ErrLiquidationCooldown，
// 承诺缺失/过期/哈希不匹配返回 ErrNoValidCommitment，
// 仓位已补足保证金不再达标返回 ErrPositionNotLiquidatable
func (e *LiquidationEngine) Execute(liquidator, hedger string, positionID int64, salt [32]byte, price decimal.Decimal) (*LiquidationResult, error) {
	key := commitmentKey{hedger: hedger, positionID: positionID}
	c, ok := e.commitments[key]
	if !ok {
		return nil, ErrNoValidCommitment
	}
	if e.expired(c) {
		delete(e.commitments, key)
		return nil, ErrNoValidCommitment
	}
	if c.Liquidator != liquidator || c.Hash != CommitmentHash(hedger, positionID, salt, liquidator) {
		return nil, ErrNoValidCommitment
	}
	if e.clock().Sub(c.CommitTime) < e.params.LiquidationCooldown {
		return nil, ErrLiquidationCooldown
	}

	pos, ok := e.ledger.Position(positionID)
	if !ok || pos.Hedger != hedger {
		return nil, ErrPositionNotFound
	}
	if !pos.IsActive {
		return nil, ErrPositionNotActive
	}
	if !e.margin.IsLiquidatable(pos, price) {
		return nil, ErrPositionNotLiquidatable
	}

	pnl := pos.UnrealizedPnL(price)
	remaining := MaxDecimal(pos.Margin.Add(pnl), decimal.Zero)

	reward := BpsOf(pos.Margin, e.params.LiquidationRewardBps)
	rewardCap := BpsOf(pos.Margin, e.params.MaxLiquidationRewardBps)
	if reward.GreaterThan(rewardCap) {
		return nil, ErrLiquidationRewardTooHigh
	}
	reward = MinDecimal(reward, remaining)
	residual := remaining.Sub(reward)

	ts, err := ValidateTimestamp(e.clock())
	if err != nil {
		return nil, err
	}
	if err := e.ledger.RemovePosition(hedger, positionID, ts); err != nil {
		return nil, err
	}
	if err := e.trez.Debit(reward.Add(residual)); err != nil {
		return nil, err
	}
	delete(e.commitments, key)

	return &LiquidationResult{
		PositionID: positionID,
		Hedger:     hedger,
		Liquidator: liquidator,
		Reward:     reward,
		Residual:   residual,
		PnL:        pnl,
	}, nil
}

// RestoreCommitment 重建持久化的承诺（服务重启恢复）
// 过期判定仍按 CommitTime 惰性进行，无需在恢复时过滤
func (e *LiquidationEngine) RestoreCommitment(c *LiquidationCommitment) {
	e.commitments[commitmentKey{hedger: c.Hedger, positionID: c.PositionID}] = c
}

// Invalidate 使承诺失效
// 仓位状态发生不兼容变化（如追加保证金）时由入口点调用
func (e *LiquidationEngine) Invalidate(hedger string, positionID int64) {
	delete(e.commitments, commitmentKey{hedger: hedger, positionID: positionID})
}

// PendingCommitment 查询未过期的承诺
func (e *LiquidationEngine) PendingCommitment(hedger string, positionID int64) (*LiquidationCommitment, bool) {
	c, ok := e.commitments[commitmentKey{hedger: hedger, positionID: positionID}]
	if !ok || e.expired(c) {
		return nil, false
	}
	return c, true
}

func (e *LiquidationEngine) expired(c *LiquidationCommitment) bool {
	return e.clock().Sub(c.CommitTime) > e.params.CommitmentWindow
}

func (e *LiquidationEngine) clock() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now()
}

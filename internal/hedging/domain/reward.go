package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RewardAccrual 利差奖励计息
// 逐区块驱动而非逐秒驱动，保证计算确定且抗 DoS：
// elapsed = min(currentBlock − lastRewardBlock, maxRewardPeriod)
// newRewards = totalExposure × (eurRate − usdRate) × elapsed / blocksPerYear
type RewardAccrual struct {
	params *EngineParams
	ledger *PositionLedger
	blocks BlockSource
	trez   *Treasury

	now func() time.Time
}

// NewRewardAccrual 创建计息器
func NewRewardAccrual(params *EngineParams, ledger *PositionLedger, blocks BlockSource, trez *Treasury) *RewardAccrual {
	return &RewardAccrual{
		params: params,
		ledger: ledger,
		blocks: blocks,
		trez:   trez,
		now:    time.Now,
	}
}

// CurrentBlock 当前宿主账本区块高度
func (r *RewardAccrual) CurrentBlock() uint64 {
	return r.blocks.CurrentBlock()
}

// Accrue 将自上次计息以来的奖励累加到待领取余额
// 待领取余额在上限处截断，超出部分不再累计，领取后恢复全额计息；
// lastRewardBlock 每次计息或领取都推进到当前区块，从不回溯
func (r *RewardAccrual) Accrue(acc *HedgerAccount) {
	current := r.blocks.CurrentBlock()
	if current <= acc.LastRewardBlock {
		return
	}

	elapsed := current - acc.LastRewardBlock
	if elapsed > r.params.MaxRewardPeriodBlocks {
		elapsed = r.params.MaxRewardPeriodBlocks
	}

	rateDiffBps := r.params.EURInterestRateBps - r.params.USDInterestRateBps
	delta := decimal.Zero
	if rateDiffBps > 0 && acc.TotalExposure.IsPositive() {
		annual := BpsOf(acc.TotalExposure, rateDiffBps)
		delta = MulDivDown(annual, decimal.NewFromInt(int64(elapsed)), decimal.NewFromInt(int64(r.params.BlocksPerYear)))
	}

	newPending := acc.PendingRewards.Add(delta)
	if newPending.GreaterThan(r.params.MaxPendingRewards) {
		newPending = r.params.MaxPendingRewards
	}

	acc.PendingRewards = newPending
	acc.LastRewardBlock = current
}

// Claim 领取全部待领取奖励
// 领取前先计息到当前区块；无可领取余额时返回 ErrNoPendingRewards
func (r *RewardAccrual) Claim(hedger string) (decimal.Decimal, error) {
	acc, ok := r.ledger.Account(hedger)
	if !ok {
		return decimal.Zero, ErrHedgerAccountNotFound
	}
	r.Accrue(acc)
	if !acc.PendingRewards.IsPositive() {
		return decimal.Zero, ErrNoPendingRewards
	}

	ts, err := ValidateTimestamp(r.now())
	if err != nil {
		return decimal.Zero, err
	}

	amount := acc.PendingRewards
	if err := r.trez.Debit(amount); err != nil {
		return decimal.Zero, err
	}
	acc.PendingRewards = decimal.Zero
	acc.LastRewardClaim = ts
	return amount, nil
}

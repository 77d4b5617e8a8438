package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBlocks struct {
	height uint64
}

func (b *stubBlocks) CurrentBlock() uint64 {
	return b.height
}

type rewardFixture struct {
	params   EngineParams
	ledger   *PositionLedger
	treasury *Treasury
	blocks   *stubBlocks
	accrual  *RewardAccrual
	acc      *HedgerAccount
}

func newRewardFixture(t *testing.T, mutate func(*EngineParams)) *rewardFixture {
	t.Helper()
	params := DefaultEngineParams()
	// 利差 100 bps、年化 1000 块，数字可口算
	params.EURInterestRateBps = 350
	params.USDInterestRateBps = 250
	params.BlocksPerYear = 1000
	params.MaxRewardPeriodBlocks = 500
	if mutate != nil {
		mutate(&params)
	}

	ledger := NewPositionLedger(params.MaxPositionsPerHedger)
	treasury := NewTreasury(d("1000000"))
	blocks := &stubBlocks{height: 100}
	accrual := NewRewardAccrual(&params, ledger, blocks, treasury)
	accrual.now = func() time.Time { return time.Unix(1700000000, 0) }

	acc := ledger.EnsureAccount("alice")
	acc.IsActive = true
	acc.TotalExposure = d("10000")
	acc.LastRewardBlock = 100
	return &rewardFixture{params: params, ledger: ledger, treasury: treasury, blocks: blocks, accrual: accrual, acc: acc}
}

func TestAccrueBlockDriven(t *testing.T) {
	f := newRewardFixture(t, nil)

	// 100 块后：10000 × 100 bps × 100 / 1000 = 10
	f.blocks.height = 200
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("10")))
	assert.Equal(t, uint64(200), f.acc.LastRewardBlock)

	// 同一区块重复计息不产生奖励
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("10")))
}

func TestAccrueNeverRewindsBlock(t *testing.T) {
	f := newRewardFixture(t, nil)
	f.acc.LastRewardBlock = 300

	// 区块源回退时不计息也不回拨
	f.blocks.height = 200
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.IsZero())
	assert.Equal(t, uint64(300), f.acc.LastRewardBlock)
}

func TestAccruePeriodCap(t *testing.T) {
	f := newRewardFixture(t, nil)

	// 经过 800 块但计息期上限 500 块：10000 × 100 bps × 500 / 1000 = 50
	f.blocks.height = 900
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("50")))
	assert.Equal(t, uint64(900), f.acc.LastRewardBlock)
}

func TestAccrueZeroExposureOrNegativeSpread(t *testing.T) {
	f := newRewardFixture(t, nil)
	f.acc.TotalExposure = d("0")
	f.blocks.height = 200
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.IsZero())
	// 区块指针仍然推进
	assert.Equal(t, uint64(200), f.acc.LastRewardBlock)

	// 利差为负时不产生负奖励
	f = newRewardFixture(t, func(p *EngineParams) {
		p.USDInterestRateBps = 450
	})
	f.blocks.height = 200
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.IsZero())
}

func TestAccrueClampedAtCap(t *testing.T) {
	f := newRewardFixture(t, func(p *EngineParams) {
		p.MaxPendingRewards = d("5")
	})

	// 100 块应得 10，截断为上限 5，区块指针照常推进
	f.blocks.height = 200
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("5")))
	assert.Equal(t, uint64(200), f.acc.LastRewardBlock)

	// 已饱和时继续计息不会越过上限
	f.blocks.height = 300
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("5")))
	assert.Equal(t, uint64(300), f.acc.LastRewardBlock)
}

func TestClaimAtCapPaysOutAndResumesAccrual(t *testing.T) {
	f := newRewardFixture(t, func(p *EngineParams) {
		p.MaxPendingRewards = d("5")
	})
	f.acc.PendingRewards = d("4")

	// 接近上限时领取不被新计息阻塞：4 + 10 截断为 5，全额支付
	f.blocks.height = 200
	amount, err := f.accrual.Claim("alice")
	require.NoError(t, err)
	assert.True(t, amount.Equal(d("5")))
	assert.True(t, f.acc.PendingRewards.IsZero())
	assert.True(t, f.treasury.Balance().Equal(d("999995")))

	// 领取后计息恢复全额
	f.blocks.height = 230
	f.accrual.Accrue(f.acc)
	assert.True(t, f.acc.PendingRewards.Equal(d("3")))
}

func TestClaimRewards(t *testing.T) {
	f := newRewardFixture(t, nil)
	f.blocks.height = 200

	amount, err := f.accrual.Claim("alice")
	require.NoError(t, err)
	assert.True(t, amount.Equal(d("10")))
	assert.True(t, f.acc.PendingRewards.IsZero())
	assert.Equal(t, int64(1700000000), f.acc.LastRewardClaim)
	assert.True(t, f.treasury.Balance().Equal(d("999990")))

	// 再次领取无可领余额
	_, err = f.accrual.Claim("alice")
	assert.ErrorIs(t, err, ErrNoPendingRewards)
}

func TestClaimUnknownHedger(t *testing.T) {
	f := newRewardFixture(t, nil)
	_, err := f.accrual.Claim("nobody")
	assert.ErrorIs(t, err, ErrHedgerAccountNotFound)
}

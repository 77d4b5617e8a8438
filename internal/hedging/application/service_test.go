package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/pkg/metrics"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type stubOracle struct {
	price decimal.Decimal
	valid bool
	err   error
}

func (o *stubOracle) GetPrice(context.Context) (decimal.Decimal, bool, error) {
	return o.price, o.valid, o.err
}

type stubVault struct {
	ok  bool
	err error
}

func (v *stubVault) CheckCollateralizationAfter(context.Context, decimal.Decimal) (bool, error) {
	return v.ok, v.err
}

type stubBlocks struct {
	height uint64
}

func (b *stubBlocks) CurrentBlock() uint64 {
	return b.height
}

type seqIDGen struct {
	next int64
}

func (g *seqIDGen) NextID() int64 {
	g.next++
	return g.next
}

type memPositionRepo struct {
	mu      sync.Mutex
	saved   map[int64]domain.Position
	saveErr error
}

func newMemPositionRepo() *memPositionRepo {
	return &memPositionRepo{saved: make(map[int64]domain.Position)}
}

func (r *memPositionRepo) Save(_ context.Context, pos *domain.Position) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[pos.PositionID] = *pos
	return nil
}

func (r *memPositionRepo) Get(_ context.Context, positionID int64) (*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.saved[positionID]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return &p, nil
}

func (r *memPositionRepo) ListByHedger(_ context.Context, hedger string, activeOnly bool) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, p := range r.saved {
		if p.Hedger != hedger || (activeOnly && !p.IsActive) {
			continue
		}
		c := p
		out = append(out, &c)
	}
	return out, nil
}

func (r *memPositionRepo) ListActive(_ context.Context) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, p := range r.saved {
		if p.IsActive {
			c := p
			out = append(out, &c)
		}
	}
	return out, nil
}

type memAccountRepo struct {
	mu      sync.Mutex
	saved   map[string]domain.HedgerAccount
	saveErr error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{saved: make(map[string]domain.HedgerAccount)}
}

func (r *memAccountRepo) Save(_ context.Context, acc *domain.HedgerAccount) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[acc.Hedger] = *acc
	return nil
}

func (r *memAccountRepo) Get(_ context.Context, hedger string) (*domain.HedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.saved[hedger]
	if !ok {
		return nil, domain.ErrHedgerAccountNotFound
	}
	return &a, nil
}

func (r *memAccountRepo) List(_ context.Context) ([]*domain.HedgerAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.HedgerAccount
	for _, a := range r.saved {
		c := a
		out = append(out, &c)
	}
	return out, nil
}

type memCommitmentRepo struct {
	mu    sync.Mutex
	saved map[string]domain.LiquidationCommitment
}

func newMemCommitmentRepo() *memCommitmentRepo {
	return &memCommitmentRepo{saved: make(map[string]domain.LiquidationCommitment)}
}

func commitmentRepoKey(hedger string, positionID int64) string {
	return hedger + "/" + decimal.NewFromInt(positionID).String()
}

func (r *memCommitmentRepo) Save(_ context.Context, c *domain.LiquidationCommitment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[commitmentRepoKey(c.Hedger, c.PositionID)] = *c
	return nil
}

func (r *memCommitmentRepo) Delete(_ context.Context, hedger string, positionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, commitmentRepoKey(hedger, positionID))
	return nil
}

func (r *memCommitmentRepo) List(context.Context) ([]*domain.LiquidationCommitment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.LiquidationCommitment
	for _, c := range r.saved {
		cc := c
		out = append(out, &cc)
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturingPublisher) Publish(_ context.Context, eventType, _ string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *capturingPublisher) Has(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type serviceFixture struct {
	service     *HedgingService
	oracle      *stubOracle
	vault       *stubVault
	blocks      *stubBlocks
	positions   *memPositionRepo
	accounts    *memAccountRepo
	commitments *memCommitmentRepo
	publisher   *capturingPublisher
}

func newServiceFixture(t *testing.T, mutate func(*domain.EngineParams)) *serviceFixture {
	t.Helper()
	params := domain.DefaultEngineParams()
	// 测试无需等待真实冷却期
	params.LiquidationCooldown = 0
	if mutate != nil {
		mutate(&params)
	}

	f := &serviceFixture{
		oracle:      &stubOracle{price: d("1.00"), valid: true},
		vault:       &stubVault{ok: true},
		blocks:      &stubBlocks{height: 100},
		positions:   newMemPositionRepo(),
		accounts:    newMemAccountRepo(),
		commitments: newMemCommitmentRepo(),
		publisher:   &capturingPublisher{},
	}

	service, err := NewHedgingService(params, Dependencies{
		Oracle:        f.oracle,
		Vault:         f.vault,
		Blocks:        f.blocks,
		IDGen:         &seqIDGen{},
		Positions:     f.positions,
		Accounts:      f.accounts,
		Commitments:   f.commitments,
		Publisher:     f.publisher,
		Metrics:       metrics.New("hedging_test"),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		TreasuryFloat: d("1000000"),
	})
	require.NoError(t, err)
	f.service = service
	return f
}

func (f *serviceFixture) whitelist(t *testing.T, hedger string) {
	t.Helper()
	_, err := f.service.Command.WhitelistHedger(context.Background(), hedger)
	require.NoError(t, err)
}

func TestOpenPositionEndToEnd(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.oracle.price = d("1.10")
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "2", res.Fee)
	assert.Equal(t, "4990", res.Position.PositionSize)
	assert.Equal(t, "998", res.Position.Margin)
	assert.Equal(t, "1.1", res.Position.EntryPrice)
	assert.True(t, res.Position.IsActive)

	// 仓位与账户均已持久化
	saved, err := f.positions.Get(context.Background(), res.Position.PositionID)
	require.NoError(t, err)
	assert.True(t, saved.Margin.Equal(d("998")))
	acc, err := f.accounts.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, acc.TotalExposure.Equal(d("4990")))

	assert.True(t, f.publisher.Has(domain.PositionOpenedEventType))

	// 查询侧看到同一仓位并附带实时盈亏
	dto, err := f.service.Query.GetPosition(context.Background(), res.Position.PositionID)
	require.NoError(t, err)
	assert.Equal(t, "0", dto.UnrealizedPnL)
}

func TestOpenPositionRequiresWhitelist(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "mallory",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	assert.ErrorIs(t, err, domain.ErrHedgerNotWhitelisted)
}

func TestOpenPositionRejectsInvalidOracle(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	f.oracle.valid = false
	_, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOraclePrice)

	f.oracle.valid = true
	f.oracle.err = errors.New("oracle unreachable")
	_, err = f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	assert.Error(t, err)
}

func TestOpenPositionRollsBackOnPersistFailure(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	f.accounts.saveErr = errors.New("db down")
	_, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.Error(t, err)

	// 内存状态整体回滚，不存在部分提交
	f.accounts.saveErr = nil
	acc, err := f.service.Query.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "0", acc.TotalMargin)
	assert.Equal(t, 0, acc.ActivePositions)
	positions, err := f.service.Query.ListPositions(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestCloseAfterPriceDrop(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.oracle.price = d("1.10")
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	// EUR/USD 下跌，做空欧元的对冲方盈利
	f.oracle.price = d("0.99")
	closed, err := f.service.Command.ClosePosition(context.Background(), ClosePositionCommand{
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
	})
	require.NoError(t, err)
	assert.Equal(t, "499", closed.PnL)
	assert.Equal(t, "1494.006", closed.Payout)
	assert.True(t, f.publisher.Has(domain.PositionClosedEventType))
}

func TestLiquidationEndToEnd(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)
	positionID := res.Position.PositionID

	// EUR/USD 升至 1.195：pnl = 4990 × (1.00 − 1.195) = −973.05，
	// 有效保证金 24.95，ratio 0.005 < 0.01，可强平
	f.oracle.price = d("1.195")

	salt := [32]byte{42}
	hash := domain.CommitmentHash("alice", positionID, salt, "liq-1")
	_, err = f.service.Command.CommitLiquidation(context.Background(), CommitLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: positionID,
		Hash:       hash,
	})
	require.NoError(t, err)

	// 承诺可查询
	pending, err := f.service.Query.GetCommitment(context.Background(), "alice", positionID)
	require.NoError(t, err)
	assert.Equal(t, "liq-1", pending.Liquidator)

	liq, err := f.service.Command.ExecuteLiquidation(context.Background(), ExecuteLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: positionID,
		Salt:       salt,
	})
	require.NoError(t, err)

	// 奖励 200 bps × 998 = 19.96，余款 24.95 − 19.96 = 4.99
	assert.Equal(t, "19.96", liq.Reward)
	assert.Equal(t, "4.99", liq.Residual)
	assert.True(t, f.publisher.Has(domain.LiquidationExecutedEventType))

	dto, err := f.service.Query.GetPosition(context.Background(), positionID)
	require.NoError(t, err)
	assert.False(t, dto.IsActive)

	// 承诺已从持久层清除
	list, err := f.commitments.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestLiquidationCooldownEnforced(t *testing.T) {
	f := newServiceFixture(t, func(p *domain.EngineParams) {
		p.LiquidationCooldown = domain.DefaultEngineParams().LiquidationCooldown
	})
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)
	f.oracle.price = d("1.195")

	salt := [32]byte{42}
	hash := domain.CommitmentHash("alice", res.Position.PositionID, salt, "liq-1")
	_, err = f.service.Command.CommitLiquidation(context.Background(), CommitLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Hash:       hash,
	})
	require.NoError(t, err)

	// 冷却期未满立即揭示被拒
	_, err = f.service.Command.ExecuteLiquidation(context.Background(), ExecuteLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Salt:       salt,
	})
	assert.ErrorIs(t, err, domain.ErrLiquidationCooldown)
}

func TestAddMarginInvalidatesCommitment(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)
	positionID := res.Position.PositionID
	f.oracle.price = d("1.195")

	salt := [32]byte{42}
	hash := domain.CommitmentHash("alice", positionID, salt, "liq-1")
	_, err = f.service.Command.CommitLiquidation(context.Background(), CommitLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: positionID,
		Hash:       hash,
	})
	require.NoError(t, err)

	// 对冲方补足保证金，承诺失效
	_, err = f.service.Command.AddMargin(context.Background(), MarginCommand{
		Hedger:     "alice",
		PositionID: positionID,
		Amount:     d("5000"),
	})
	require.NoError(t, err)

	_, err = f.service.Command.ExecuteLiquidation(context.Background(), ExecuteLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: positionID,
		Salt:       salt,
	})
	assert.ErrorIs(t, err, domain.ErrNoValidCommitment)
}

func TestRemoveMarginVaultBlocked(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("2"),
	})
	require.NoError(t, err)

	f.vault.ok = false
	_, err = f.service.Command.RemoveMargin(context.Background(), MarginCommand{
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Amount:     d("100"),
	})
	assert.ErrorIs(t, err, domain.ErrVaultUndercollateralized)

	// 拒绝后仓位保证金原样
	dto, err := f.service.Query.GetPosition(context.Background(), res.Position.PositionID)
	require.NoError(t, err)
	assert.Equal(t, "998", dto.Margin)
}

func TestClaimRewardsEndToEnd(t *testing.T) {
	f := newServiceFixture(t, func(p *domain.EngineParams) {
		p.BlocksPerYear = 1000
		p.MaxRewardPeriodBlocks = 500
	})
	f.whitelist(t, "alice")

	_, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	// 推进 100 块：4990 × 100 bps × 100 / 1000 = 4.99
	f.blocks.height += 100
	res, err := f.service.Command.ClaimRewards(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "4.99", res.Amount)
	assert.True(t, f.publisher.Has(domain.RewardsClaimedEventType))

	// 无新增区块则无可领取
	_, err = f.service.Command.ClaimRewards(context.Background(), "alice")
	assert.ErrorIs(t, err, domain.ErrNoPendingRewards)
}

func TestSaturatedRewardsNeverBlockClaimOrLiquidation(t *testing.T) {
	f := newServiceFixture(t, func(p *domain.EngineParams) {
		p.BlocksPerYear = 1000
		p.MaxRewardPeriodBlocks = 500
		p.MaxPendingRewards = d("1")
	})
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	// 应得 4.99 远超上限 1，饱和后领取仍支付截断后的余额
	f.blocks.height += 100
	claim, err := f.service.Command.ClaimRewards(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "1", claim.Amount)

	// 再次饱和后强平不受计息影响
	f.blocks.height += 500
	f.oracle.price = d("1.195")
	salt := [32]byte{7}
	hash := domain.CommitmentHash("alice", res.Position.PositionID, salt, "liq-1")
	_, err = f.service.Command.CommitLiquidation(context.Background(), CommitLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Hash:       hash,
	})
	require.NoError(t, err)

	liq, err := f.service.Command.ExecuteLiquidation(context.Background(), ExecuteLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Salt:       salt,
	})
	require.NoError(t, err)
	assert.Equal(t, "19.96", liq.Reward)
}

// lockObservingPublisher 在发布回调内探测写锁是否仍被持有
type lockObservingPublisher struct {
	capturingPublisher
	cmd      *HedgingCommand
	heldEach []bool
}

func (p *lockObservingPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	held := !p.cmd.mu.TryLock()
	if !held {
		p.cmd.mu.Unlock()
	}
	p.heldEach = append(p.heldEach, held)
	return p.capturingPublisher.Publish(ctx, eventType, key, payload)
}

func TestWriteLockHeldThroughCollaboratorCallbacks(t *testing.T) {
	publisher := &lockObservingPublisher{}
	service, err := NewHedgingService(domain.DefaultEngineParams(), Dependencies{
		Oracle:        &stubOracle{price: d("1.00"), valid: true},
		Vault:         &stubVault{ok: true},
		Blocks:        &stubBlocks{height: 100},
		IDGen:         &seqIDGen{},
		Positions:     newMemPositionRepo(),
		Accounts:      newMemAccountRepo(),
		Commitments:   newMemCommitmentRepo(),
		Publisher:     publisher,
		Metrics:       metrics.New("hedging_lock_test"),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		TreasuryFloat: d("1000000"),
	})
	require.NoError(t, err)
	publisher.cmd = service.Command

	_, err = service.Command.WhitelistHedger(context.Background(), "alice")
	require.NoError(t, err)
	_, err = service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	// 协作方回调期间锁从未释放，重入的变更调用只能排队等待整个操作结束
	require.NotEmpty(t, publisher.heldEach)
	for _, held := range publisher.heldEach {
		assert.True(t, held)
	}
}

func TestLoadStateRebuildsLedger(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.oracle.price = d("1.10")
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	salt := [32]byte{1}
	hash := domain.CommitmentHash("alice", res.Position.PositionID, salt, "liq-1")
	f.oracle.price = d("1.35")
	_, err = f.service.Command.CommitLiquidation(context.Background(), CommitLiquidationCommand{
		Liquidator: "liq-1",
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
		Hash:       hash,
	})
	require.NoError(t, err)

	// 新进程从同一批仓储重建内存总账
	restarted := newServiceFixture(t, nil)
	restarted.positions = f.positions
	restarted.accounts = f.accounts
	restarted.commitments = f.commitments
	service, err := NewHedgingService(domain.DefaultEngineParams(), Dependencies{
		Oracle:        restarted.oracle,
		Vault:         restarted.vault,
		Blocks:        restarted.blocks,
		IDGen:         &seqIDGen{next: 1000},
		Positions:     f.positions,
		Accounts:      f.accounts,
		Commitments:   f.commitments,
		Publisher:     restarted.publisher,
		Metrics:       metrics.New("hedging_restart_test"),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		TreasuryFloat: d("1000000"),
	})
	require.NoError(t, err)
	require.NoError(t, service.LoadState(context.Background()))

	dto, err := service.Query.GetPosition(context.Background(), res.Position.PositionID)
	require.NoError(t, err)
	assert.Equal(t, "998", dto.Margin)
	assert.True(t, dto.IsActive)

	acc, err := service.Query.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "4990", acc.TotalExposure)
	assert.Equal(t, 1, acc.ActivePositions)

	pending, err := service.Query.GetCommitment(context.Background(), "alice", res.Position.PositionID)
	require.NoError(t, err)
	assert.Equal(t, "liq-1", pending.Liquidator)
}

func TestLoadStateRestoresSuspendedAccount(t *testing.T) {
	f := newServiceFixture(t, func(p *domain.EngineParams) {
		p.BlocksPerYear = 1000
		p.MaxRewardPeriodBlocks = 500
	})
	f.whitelist(t, "alice")

	_, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	// 第二次开仓先计息：4990 × 100 bps × 100 / 1000 = 4.99，随账户一并持久化
	f.blocks.height += 100
	_, err = f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Command.SuspendHedger(context.Background(), "alice"))

	// 重启后暂停账户同样恢复，待领取奖励不得归零
	service, err := NewHedgingService(domain.DefaultEngineParams(), Dependencies{
		Oracle:        f.oracle,
		Vault:         f.vault,
		Blocks:        f.blocks,
		IDGen:         &seqIDGen{next: 1000},
		Positions:     f.positions,
		Accounts:      f.accounts,
		Commitments:   f.commitments,
		Publisher:     &capturingPublisher{},
		Metrics:       metrics.New("hedging_suspend_restart_test"),
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		TreasuryFloat: d("1000000"),
	})
	require.NoError(t, err)
	require.NoError(t, service.LoadState(context.Background()))

	acc, err := service.Query.GetAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, acc.IsActive)
	assert.Equal(t, "4.99", acc.PendingRewards)
}

func TestSuspendHedgerBlocksNewPositions(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.whitelist(t, "alice")

	res, err := f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Command.SuspendHedger(context.Background(), "alice"))

	_, err = f.service.Command.OpenPosition(context.Background(), OpenPositionCommand{
		Hedger:   "alice",
		Margin:   d("1000"),
		Leverage: d("5"),
	})
	assert.ErrorIs(t, err, domain.ErrHedgerNotWhitelisted)

	// 已持仓位仍可正常平仓
	_, err = f.service.Command.ClosePosition(context.Background(), ClosePositionCommand{
		Hedger:     "alice",
		PositionID: res.Position.PositionID,
	})
	assert.NoError(t, err)
}

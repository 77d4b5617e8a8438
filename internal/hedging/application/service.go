package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/pkg/metrics"
)

// HedgingService 对冲引擎服务门面，整合命令与查询
type HedgingService struct {
	Command *HedgingCommand
	Query   *HedgingQuery
}

// Dependencies 服务外部依赖
type Dependencies struct {
	Oracle      domain.PriceOracle
	Vault       domain.CollateralVault
	Blocks      domain.BlockSource
	IDGen       domain.IDGenerator
	Positions   domain.PositionRepository
	Accounts    domain.AccountRepository
	Commitments domain.CommitmentRepository
	Publisher   domain.EventPublisher
	// Cache 可选的仓位快照缓存
	Cache   PositionSnapshotCache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// TreasuryFloat 资金池初始余额，用于支付利差奖励
	TreasuryFloat decimal.Decimal
}

// NewHedgingService 装配引擎与服务
func NewHedgingService(params domain.EngineParams, deps Dependencies) (*HedgingService, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	ledger := domain.NewPositionLedger(params.MaxPositionsPerHedger)
	treasury := domain.NewTreasury(deps.TreasuryFloat)
	marginEngine := domain.NewMarginEngine(&params, ledger, treasury, deps.Vault, deps.IDGen)
	liquidationEngine := domain.NewLiquidationEngine(&params, ledger, marginEngine, treasury)
	rewards := domain.NewRewardAccrual(&params, ledger, deps.Blocks, treasury)

	cmd := NewHedgingCommand(
		&params,
		ledger,
		treasury,
		marginEngine,
		liquidationEngine,
		rewards,
		deps.Oracle,
		deps.Positions,
		deps.Accounts,
		deps.Commitments,
		deps.Publisher,
		deps.Cache,
		deps.Metrics,
		deps.Logger,
	)
	query := NewHedgingQuery(cmd, deps.Oracle)

	return &HedgingService{Command: cmd, Query: query}, nil
}

// LoadState 从持久层重建内存总账（服务重启恢复）
// 账户全量恢复（含已暂停的，其待领取奖励仍然有效），先于仓位恢复，
// 聚合合计由 AddPosition 重新累计；
// 已持久化的强平承诺原样恢复，过期判定仍按提交时间惰性进行
func (s *HedgingService) LoadState(ctx context.Context) error {
	c := s.Command
	c.mu.Lock()
	defer c.mu.Unlock()

	accounts, err := c.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	for _, saved := range accounts {
		acc := c.ledger.EnsureAccount(saved.Hedger)
		acc.IsActive = saved.IsActive
		acc.PendingRewards = saved.PendingRewards
		acc.LastRewardClaim = saved.LastRewardClaim
		acc.LastRewardBlock = saved.LastRewardBlock
	}

	positions, err := c.positions.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	for _, pos := range positions {
		if err := c.ledger.AddPosition(pos.Hedger, pos); err != nil {
			return fmt.Errorf("restore position %d: %w", pos.PositionID, err)
		}
	}
	// 在管保证金始终由资金池持有，重启后补回余额基准
	c.treasury.Credit(c.ledger.TotalMargin())

	commitments, err := c.commitments.List(ctx)
	if err != nil {
		return fmt.Errorf("load commitments: %w", err)
	}
	for _, commitment := range commitments {
		c.liquidation.RestoreCommitment(commitment)
	}

	c.syncGauges()
	c.logger.Info("ledger state restored",
		"accounts", len(accounts),
		"positions", len(positions),
		"commitments", len(commitments))
	return nil
}

package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantora/hedgingengine/internal/hedging/domain"
	"github.com/quantora/hedgingengine/pkg/metrics"
)

// PositionSnapshotCache 仓位快照缓存，供其他服务低延迟读取
// 写路径尽力而为，缓存失败不影响业务提交
type PositionSnapshotCache interface {
	Put(ctx context.Context, pos *domain.Position) error
	Invalidate(ctx context.Context, positionID int64) error
}

// HedgingCommand 对冲引擎写入口
// 所有入口串行执行（宿主账本全序），每个入口 all-or-nothing：
// 任一失败都会恢复进入时的内存快照，不存在部分提交。
// mu 在入口处获取、经 defer 在所有退出路径释放，并在协作方回调
// （预言机、仓库、发布器）期间持续持有，重入的变更调用只会阻塞排队，
// 不可能与进行中的操作交织
type HedgingCommand struct {
	params      *domain.EngineParams
	ledger      *domain.PositionLedger
	treasury    *domain.Treasury
	margin      *domain.MarginEngine
	liquidation *domain.LiquidationEngine
	rewards     *domain.RewardAccrual
	guard       *domain.FlashLoanGuard
	oracle      domain.PriceOracle

	positions   domain.PositionRepository
	accounts    domain.AccountRepository
	commitments domain.CommitmentRepository
	publisher   domain.EventPublisher
	cache       PositionSnapshotCache

	metrics *metrics.Metrics
	logger  *slog.Logger

	mu sync.Mutex
}

// NewHedgingCommand 构造写入口
func NewHedgingCommand(
	params *domain.EngineParams,
	ledger *domain.PositionLedger,
	treasury *domain.Treasury,
	margin *domain.MarginEngine,
	liquidation *domain.LiquidationEngine,
	rewards *domain.RewardAccrual,
	oracle domain.PriceOracle,
	positions domain.PositionRepository,
	accounts domain.AccountRepository,
	commitments domain.CommitmentRepository,
	publisher domain.EventPublisher,
	cache PositionSnapshotCache,
	m *metrics.Metrics,
	logger *slog.Logger,
) *HedgingCommand {
	return &HedgingCommand{
		params:      params,
		ledger:      ledger,
		treasury:    treasury,
		margin:      margin,
		liquidation: liquidation,
		rewards:     rewards,
		guard:       domain.NewFlashLoanGuard(treasury),
		oracle:      oracle,
		positions:   positions,
		accounts:    accounts,
		commitments: commitments,
		publisher:   publisher,
		cache:       cache,
		metrics:     m,
		logger:      logger,
	}
}

// checkpoint 捕获单个对冲方相关的全部内存状态，返回恢复函数
func (c *HedgingCommand) checkpoint(hedger string) func() {
	restoreLedger := c.ledger.Checkpoint(hedger)
	balance := c.treasury.Balance()
	return func() {
		restoreLedger()
		c.treasury.Credit(balance.Sub(c.treasury.Balance()))
	}
}

// currentPrice 读取预言机价格，无效价格直接拒绝
func (c *HedgingCommand) currentPrice(ctx context.Context) (decimal.Decimal, error) {
	price, valid, err := c.oracle.GetPrice(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if !valid || price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidOraclePrice
	}
	return price, nil
}

// accrueIfExists 敞口即将变化前为对冲方计息到当前区块
func (c *HedgingCommand) accrueIfExists(hedger string) {
	if acc, ok := c.ledger.Account(hedger); ok {
		c.rewards.Accrue(acc)
	}
}

// OpenPosition 开仓入口
func (c *HedgingCommand) OpenPosition(ctx context.Context, cmd OpenPositionCommand) (*OpenPositionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.currentPrice(ctx)
	if err != nil {
		return nil, err
	}

	restore := c.checkpoint(cmd.Hedger)
	var result *domain.OpenResult
	err = c.guard.Protect(func() (decimal.Decimal, error) {
		c.accrueIfExists(cmd.Hedger)
		r, err := c.margin.OpenPosition(cmd.Hedger, cmd.Margin, cmd.Leverage, price)
		if err != nil {
			return decimal.Zero, err
		}
		result = r
		return decimal.Zero, nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	if err := c.persistHedger(ctx, cmd.Hedger, result.Position); err != nil {
		restore()
		return nil, err
	}

	c.publish(ctx, domain.PositionOpenedEventType, cmd.Hedger, domain.PositionOpenedEvent{
		PositionID:   result.Position.PositionID,
		Hedger:       cmd.Hedger,
		Margin:       result.NetMargin.String(),
		PositionSize: result.Position.PositionSize.String(),
		EntryPrice:   price.String(),
		Leverage:     cmd.Leverage.String(),
		Fee:          result.Fee.String(),
		OccurredOn:   time.Now(),
	})

	c.metrics.PositionsOpenedTotal.Inc()
	c.syncGauges()
	c.logger.Info("position opened",
		"position_id", result.Position.PositionID,
		"hedger", cmd.Hedger,
		"size", result.Position.PositionSize.String(),
		"entry_price", price.String())

	return &OpenPositionResult{Position: toPositionDTO(result.Position), Fee: result.Fee.String()}, nil
}

// ClosePosition 平仓入口
func (c *HedgingCommand) ClosePosition(ctx context.Context, cmd ClosePositionCommand) (*ClosePositionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.currentPrice(ctx)
	if err != nil {
		return nil, err
	}

	restore := c.checkpoint(cmd.Hedger)
	var result *domain.CloseResult
	err = c.guard.Protect(func() (decimal.Decimal, error) {
		c.accrueIfExists(cmd.Hedger)
		r, err := c.margin.ClosePosition(cmd.Hedger, cmd.PositionID, price)
		if err != nil {
			return decimal.Zero, err
		}
		result = r
		return r.Payout, nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	pos, _ := c.ledger.Position(cmd.PositionID)
	if err := c.persistHedger(ctx, cmd.Hedger, pos); err != nil {
		restore()
		return nil, err
	}
	c.liquidation.Invalidate(cmd.Hedger, cmd.PositionID)

	c.publish(ctx, domain.PositionClosedEventType, cmd.Hedger, domain.PositionClosedEvent{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		ExitPrice:  price.String(),
		PnL:        result.PnL.String(),
		Fee:        result.Fee.String(),
		Payout:     result.Payout.String(),
		OccurredOn: time.Now(),
	})

	c.metrics.PositionsClosedTotal.Inc()
	c.syncGauges()
	c.logger.Info("position closed",
		"position_id", cmd.PositionID,
		"hedger", cmd.Hedger,
		"pnl", result.PnL.String(),
		"payout", result.Payout.String())

	return &ClosePositionResult{
		PositionID: cmd.PositionID,
		PnL:        result.PnL.String(),
		Fee:        result.Fee.String(),
		Payout:     result.Payout.String(),
	}, nil
}

// AddMargin 追加保证金入口
// 追加后使该仓位上任何未执行的强平承诺失效
func (c *HedgingCommand) AddMargin(ctx context.Context, cmd MarginCommand) (*PositionDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpoint(cmd.Hedger)
	var pos *domain.Position
	err := c.guard.Protect(func() (decimal.Decimal, error) {
		p, err := c.margin.AddMargin(cmd.Hedger, cmd.PositionID, cmd.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		pos = p
		return decimal.Zero, nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	if err := c.persistHedger(ctx, cmd.Hedger, pos); err != nil {
		restore()
		return nil, err
	}
	c.liquidation.Invalidate(cmd.Hedger, cmd.PositionID)

	c.publish(ctx, domain.MarginAddedEventType, cmd.Hedger, domain.MarginAddedEvent{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		Amount:     cmd.Amount.String(),
		NewMargin:  pos.Margin.String(),
		OccurredOn: time.Now(),
	})
	c.syncGauges()
	return toPositionDTO(pos), nil
}

// RemoveMargin 提取保证金入口
func (c *HedgingCommand) RemoveMargin(ctx context.Context, cmd MarginCommand) (*PositionDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpoint(cmd.Hedger)
	var pos *domain.Position
	err := c.guard.Protect(func() (decimal.Decimal, error) {
		p, err := c.margin.RemoveMargin(ctx, cmd.Hedger, cmd.PositionID, cmd.Amount)
		if err != nil {
			return decimal.Zero, err
		}
		pos = p
		return cmd.Amount, nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	if err := c.persistHedger(ctx, cmd.Hedger, pos); err != nil {
		restore()
		return nil, err
	}

	c.publish(ctx, domain.MarginRemovedEventType, cmd.Hedger, domain.MarginRemovedEvent{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		Amount:     cmd.Amount.String(),
		NewMargin:  pos.Margin.String(),
		OccurredOn: time.Now(),
	})
	c.syncGauges()
	return toPositionDTO(pos), nil
}

// CommitLiquidation 强平承诺入口
func (c *HedgingCommand) CommitLiquidation(ctx context.Context, cmd CommitLiquidationCommand) (*CommitmentDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	commitment, err := c.liquidation.Commit(cmd.Liquidator, cmd.Hedger, cmd.PositionID, cmd.Hash)
	if err != nil {
		return nil, err
	}
	if err := c.commitments.Save(ctx, commitment); err != nil {
		c.liquidation.Invalidate(cmd.Hedger, cmd.PositionID)
		return nil, err
	}

	c.publish(ctx, domain.LiquidationCommittedEventType, cmd.Hedger, domain.LiquidationCommittedEvent{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		Liquidator: cmd.Liquidator,
		CommitTime: commitment.CommitTime,
		OccurredOn: time.Now(),
	})
	c.logger.Info("liquidation committed",
		"position_id", cmd.PositionID,
		"hedger", cmd.Hedger,
		"liquidator", cmd.Liquidator)

	return &CommitmentDTO{
		Hedger:       cmd.Hedger,
		PositionID:   cmd.PositionID,
		Liquidator:   cmd.Liquidator,
		CommitTime:   commitment.CommitTime,
		ExecutableAt: commitment.CommitTime.Add(c.params.LiquidationCooldown),
	}, nil
}

// ExecuteLiquidation 强平执行入口
func (c *HedgingCommand) ExecuteLiquidation(ctx context.Context, cmd ExecuteLiquidationCommand) (*LiquidationResultDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.currentPrice(ctx)
	if err != nil {
		return nil, err
	}

	restore := c.checkpoint(cmd.Hedger)
	var result *domain.LiquidationResult
	err = c.guard.Protect(func() (decimal.Decimal, error) {
		c.accrueIfExists(cmd.Hedger)
		r, err := c.liquidation.Execute(cmd.Liquidator, cmd.Hedger, cmd.PositionID, cmd.Salt, price)
		if err != nil {
			return decimal.Zero, err
		}
		result = r
		return r.Reward.Add(r.Residual), nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	pos, _ := c.ledger.Position(cmd.PositionID)
	if err := c.persistHedger(ctx, cmd.Hedger, pos); err != nil {
		restore()
		return nil, err
	}
	if err := c.commitments.Delete(ctx, cmd.Hedger, cmd.PositionID); err != nil {
		c.logger.Error("failed to delete liquidation commitment", "position_id", cmd.PositionID, "error", err)
	}

	c.publish(ctx, domain.LiquidationExecutedEventType, cmd.Hedger, domain.LiquidationExecutedEvent{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		Liquidator: cmd.Liquidator,
		ExitPrice:  price.String(),
		Reward:     result.Reward.String(),
		Residual:   result.Residual.String(),
		PnL:        result.PnL.String(),
		OccurredOn: time.Now(),
	})

	c.metrics.LiquidationsTotal.Inc()
	c.syncGauges()
	c.logger.Warn("position liquidated",
		"position_id", cmd.PositionID,
		"hedger", cmd.Hedger,
		"liquidator", cmd.Liquidator,
		"reward", result.Reward.String(),
		"residual", result.Residual.String())

	return &LiquidationResultDTO{
		PositionID: cmd.PositionID,
		Hedger:     cmd.Hedger,
		Liquidator: cmd.Liquidator,
		Reward:     result.Reward.String(),
		Residual:   result.Residual.String(),
		PnL:        result.PnL.String(),
	}, nil
}

// ClaimRewards 奖励领取入口
func (c *HedgingCommand) ClaimRewards(ctx context.Context, hedger string) (*ClaimRewardsResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	restore := c.checkpoint(hedger)
	var amount decimal.Decimal
	err := c.guard.Protect(func() (decimal.Decimal, error) {
		a, err := c.rewards.Claim(hedger)
		if err != nil {
			return decimal.Zero, err
		}
		amount = a
		return a, nil
	})
	if err != nil {
		restore()
		return nil, err
	}

	if err := c.persistHedger(ctx, hedger, nil); err != nil {
		restore()
		return nil, err
	}

	acc, _ := c.ledger.Account(hedger)
	c.publish(ctx, domain.RewardsClaimedEventType, hedger, domain.RewardsClaimedEvent{
		Hedger:     hedger,
		Amount:     amount.String(),
		ClaimedAt:  acc.LastRewardClaim,
		OccurredOn: time.Now(),
	})

	c.metrics.RewardsClaimedTotal.Add(toFloat(amount))
	c.logger.Info("rewards claimed", "hedger", hedger, "amount", amount.String())
	return &ClaimRewardsResult{Hedger: hedger, Amount: amount.String()}, nil
}

// WhitelistHedger 将对冲方加入白名单
// 对冲方必须先获得准入才能开仓
func (c *HedgingCommand) WhitelistHedger(ctx context.Context, hedger string) (*AccountDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc := c.ledger.EnsureAccount(hedger)
	if !acc.IsActive {
		acc.IsActive = true
		acc.LastRewardBlock = c.rewards.CurrentBlock()
		if err := c.accounts.Save(ctx, acc); err != nil {
			acc.IsActive = false
			return nil, err
		}
		c.publish(ctx, domain.HedgerWhitelistedEventType, hedger, domain.HedgerWhitelistedEvent{
			Hedger:     hedger,
			OccurredOn: time.Now(),
		})
		c.logger.Info("hedger whitelisted", "hedger", hedger)
	}
	return toAccountDTO(acc, c.ledger.ActivePositionCount(hedger)), nil
}

// SuspendHedger 停用对冲方，已持仓位不受影响但不能再开新仓
func (c *HedgingCommand) SuspendHedger(ctx context.Context, hedger string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acc, ok := c.ledger.Account(hedger)
	if !ok {
		return domain.ErrHedgerAccountNotFound
	}
	if !acc.IsActive {
		return nil
	}
	acc.IsActive = false
	if err := c.accounts.Save(ctx, acc); err != nil {
		acc.IsActive = true
		return err
	}
	c.publish(ctx, domain.HedgerSuspendedEventType, hedger, domain.HedgerSuspendedEvent{
		Hedger:     hedger,
		OccurredOn: time.Now(),
	})
	c.logger.Info("hedger suspended", "hedger", hedger)
	return nil
}

// persistHedger 持久化对冲方账户及可选的仓位快照
func (c *HedgingCommand) persistHedger(ctx context.Context, hedger string, pos *domain.Position) error {
	if acc, ok := c.ledger.Account(hedger); ok {
		if err := c.accounts.Save(ctx, acc); err != nil {
			return err
		}
	}
	if pos != nil {
		if err := c.positions.Save(ctx, pos); err != nil {
			return err
		}
		c.cachePut(ctx, pos)
	}
	return nil
}

// cachePut 刷新仓位快照缓存，失败仅记录日志
func (c *HedgingCommand) cachePut(ctx context.Context, pos *domain.Position) {
	if c.cache == nil {
		return
	}
	var err error
	if pos.IsActive {
		err = c.cache.Put(ctx, pos)
	} else {
		err = c.cache.Invalidate(ctx, pos.PositionID)
	}
	if err != nil {
		c.logger.Warn("failed to refresh position cache", "position_id", pos.PositionID, "error", err)
	}
}

// publish 发布领域事件，失败仅记录日志，不回滚已提交的业务状态
func (c *HedgingCommand) publish(ctx context.Context, eventType, key string, event any) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, eventType, key, event); err != nil {
		c.logger.Error("failed to publish domain event", "event_type", eventType, "key", key, "error", err)
	}
}

// syncGauges 刷新协议级业务指标
func (c *HedgingCommand) syncGauges() {
	c.metrics.TotalExposure.Set(toFloat(c.ledger.TotalExposure()))
	c.metrics.TotalMargin.Set(toFloat(c.ledger.TotalMargin()))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
